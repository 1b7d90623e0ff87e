// Package baseconv implements the base conversion unit: a small staged
// pipeline that converts a fixed-point word between binary, decimal, and
// dozenal (base-12) positional representations. Each unit serves one
// conversion job at a time and advances one state per step, so a
// conversion has a fixed multi-step latency.
package baseconv

import (
	"errors"
	"fmt"

	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
)

// Base identifies a positional number system. The zero values match the
// result encoding exposed to hosts.
type Base uint8

const (
	Binary  Base = 0
	Decimal Base = 1
	Dozenal Base = 2
)

// Supported reports whether the base is one of the three the unit handles.
func (b Base) Supported() bool {
	return b <= Dozenal
}

func (b Base) String() string {
	switch b {
	case Binary:
		return "binary"
	case Decimal:
		return "decimal"
	case Dozenal:
		return "dozenal"
	}
	return fmt.Sprintf("base(%d)", uint8(b))
}

// State is the conversion unit's pipeline state.
type State uint8

const (
	StateIdle State = iota
	StateLoad
	StateConvert
	StateNormalize
	StateOutput
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoad:
		return "LOAD"
	case StateConvert:
		return "CONVERT"
	case StateNormalize:
		return "NORMALIZE"
	case StateOutput:
		return "OUTPUT"
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

const (
	// convertHoldSteps is the minimum number of steps spent in CONVERT.
	convertHoldSteps = 2

	// normalizeHoldSteps is the fixed pipeline depth modelled by NORMALIZE.
	normalizeHoldSteps = 4

	// maxDigits bounds positional extraction; one base-12 digit per 4-bit
	// group, least significant digit in bits [3:0].
	maxDigits = 16
)

// ErrUnsupported is returned when a conversion names a base outside the
// supported set. The unit records it as a sticky flag rather than aborting.
var ErrUnsupported = errors.New("unsupported base conversion")

// Job describes one conversion request. It is owned by the unit from start
// until the unit reaches OUTPUT and is then discarded.
type Job struct {
	Value  fixed.Price
	Source Base
	Target Base
}

// Unit is a single conversion pipeline instance. Units are steppable state
// objects; callers advance them with Step and must not share one unit
// between concurrent jobs.
type Unit struct {
	logger *zap.Logger

	state    State
	startReq bool
	pending  Job

	value  uint64
	source Base
	target Base

	convSteps int
	normSteps int

	result      uint64
	resultValid bool
	errSticky   bool
}

// NewUnit constructs an idle conversion unit.
func NewUnit(logger *zap.Logger) *Unit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Unit{logger: logger}
}

// Start requests a conversion. It is accepted only while the unit is in
// IDLE with no start already latched; the return value reports acceptance.
func (u *Unit) Start(job Job) bool {
	if u.state != StateIdle || u.startReq {
		return false
	}
	u.startReq = true
	u.pending = job
	return true
}

// State returns the current pipeline state.
func (u *Unit) State() State {
	return u.state
}

// Busy reports whether a conversion is in flight.
func (u *Unit) Busy() bool {
	return u.state != StateIdle || u.startReq
}

// Result returns the converted word and whether it is valid. The error flag
// must be checked before trusting the value.
func (u *Unit) Result() (fixed.Price, bool) {
	return fixed.Price(u.result), u.resultValid
}

// Err reports the sticky conversion error flag. It is cleared only by Reset.
func (u *Unit) Err() bool {
	return u.errSticky
}

// Reset forces the unit to IDLE, discarding any in-flight job and clearing
// the sticky error flag.
func (u *Unit) Reset() {
	u.state = StateIdle
	u.startReq = false
	u.pending = Job{}
	u.resultValid = false
	u.errSticky = false
	u.convSteps = 0
	u.normSteps = 0
}

// Step advances the unit by one state transition.
func (u *Unit) Step() {
	switch u.state {
	case StateIdle:
		if u.startReq {
			u.startReq = false
			u.state = StateLoad
		}
	case StateLoad:
		u.value = uint64(u.pending.Value)
		u.source = u.pending.Source
		u.target = u.pending.Target
		u.resultValid = false
		u.convSteps = 0
		u.state = StateConvert
	case StateConvert:
		if u.convSteps == 0 {
			res, ok := Convert(u.value, u.source, u.target)
			if ok {
				u.result = res
			} else {
				u.errSticky = true
			}
		}
		u.convSteps++
		if u.convSteps >= convertHoldSteps {
			u.normSteps = 0
			u.state = StateNormalize
		}
	case StateNormalize:
		u.normSteps++
		if u.normSteps >= normalizeHoldSteps {
			u.state = StateOutput
		}
	case StateOutput:
		u.resultValid = true
		u.state = StateIdle
	default:
		// Illegal state recovers to IDLE; an anomaly, not a fault.
		u.logger.Warn("conversion unit in illegal state, recovering",
			zap.Uint8("state", uint8(u.state)),
		)
		u.state = StateIdle
	}
}

// Run drives one conversion to completion and returns the result. It is a
// convenience wrapper for hosts that do not interleave stepping; the cycle
// cost is identical to stepping manually.
func (u *Unit) Run(job Job) (fixed.Price, error) {
	if !u.Start(job) {
		return 0, fmt.Errorf("conversion unit busy in state %s", u.state)
	}
	hadErr := u.errSticky
	for i := 0; i < 4*(convertHoldSteps+normalizeHoldSteps); i++ {
		u.Step()
		if u.resultValid {
			break
		}
	}
	if !u.resultValid {
		return 0, fmt.Errorf("conversion did not reach OUTPUT from %s", u.state)
	}
	if u.errSticky && !hadErr {
		return 0, fmt.Errorf("%w: %s to %s", ErrUnsupported, job.Source, job.Target)
	}
	res, _ := u.Result()
	return res, nil
}

// Convert transforms value between positional representations. Native
// storage is binary; decimal shares the binary word, and dozenal packs one
// base-12 digit per 4-bit group. The second return is false for base codes
// outside the supported set.
func Convert(value uint64, source, target Base) (uint64, bool) {
	if !source.Supported() || !target.Supported() {
		return 0, false
	}
	if source == target {
		return value, true
	}
	// Binary and decimal share a representation.
	if source != Dozenal && target != Dozenal {
		return value, true
	}
	if target == Dozenal {
		// Decimal routes through binary, which is the identity.
		return toDozenal(value), true
	}
	return fromDozenal(value), true
}

// toDozenal extracts up to maxDigits base-12 digits by repeated division,
// packing each into the corresponding 4-bit group. Stops early at zero.
func toDozenal(v uint64) uint64 {
	var out uint64
	for i := 0; i < maxDigits && v != 0; i++ {
		digit := v % 12
		out |= digit << (4 * i)
		v /= 12
	}
	return out
}

// fromDozenal reads up to maxDigits 4-bit groups, weighting each by its
// power of twelve. Stops early once the remaining groups are zero.
func fromDozenal(v uint64) uint64 {
	var out uint64
	weight := uint64(1)
	for i := 0; i < maxDigits && v != 0; i++ {
		digit := v & 0xF
		out += digit * weight
		weight *= 12
		v >>= 4
	}
	return out
}
