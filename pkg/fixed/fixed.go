// Package fixed implements the 48-bit Q16.32 fixed-point price word used
// throughout the optimizer core: 16 integer bits and 32 fractional bits,
// stored in the low 48 bits of a uint64.
package fixed

// Price is a 48-bit Q16.32 scaled integer. The core treats it as an opaque
// scaled value; only the host boundary converts to and from floats.
type Price uint64

const (
	// FractionalBits is the number of fractional bits in the Q16.32 word.
	FractionalBits = 32

	// Scale is the value of one whole unit, i.e. 1 << FractionalBits.
	Scale = uint64(1) << FractionalBits

	// Mask keeps the low 48 bits of a word.
	Mask = (uint64(1) << 48) - 1

	// HiMask keeps the 16 bits that live in the high register word.
	HiMask = uint64(0xFFFF)
)

// FromFloat converts a non-negative float price to its Q16.32 word.
// Values outside the representable range wrap into the 48-bit word.
func FromFloat(v float64) Price {
	if v <= 0 {
		return 0
	}
	return Price(uint64(v*float64(Scale)) & Mask)
}

// Float converts a Q16.32 word back to a float price.
func (p Price) Float() float64 {
	return float64(uint64(p)&Mask) / float64(Scale)
}

// Hi returns the 16 bits of the price carried by the high register word.
func (p Price) Hi() uint32 {
	return uint32((uint64(p) >> 32) & HiMask)
}

// Lo returns the 32 bits of the price carried by the low register word.
func (p Price) Lo() uint32 {
	return uint32(uint64(p) & 0xFFFFFFFF)
}

// Join reassembles a price from its high and low register words.
func Join(hi, lo uint32) Price {
	return Price(((uint64(hi) & HiMask) << 32) | uint64(lo))
}

// Add returns p+q wrapped into the 48-bit word.
func (p Price) Add(q Price) Price {
	return Price((uint64(p) + uint64(q)) & Mask)
}

// AddSigned returns p+d wrapped into the 48-bit word; d may be negative.
func (p Price) AddSigned(d int64) Price {
	return Price(uint64(int64(uint64(p))+d) & Mask)
}

// Sub returns p−q, or 0 when q > p. Prices are non-negative in valid
// inputs, so clamping at zero matches the spread rule.
func (p Price) Sub(q Price) Price {
	if q > p {
		return 0
	}
	return p - q
}
