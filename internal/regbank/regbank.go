// Package regbank implements the memory-mapped register interface between a
// host and the optimizer core. The bank owns the pipeline and the converter
// pool and advances them one step per Tick; the host owns the input
// registers and the start bit, the core owns the result and status fields,
// and all accesses align to tick boundaries.
package regbank

import (
	"github.com/quantfabric/multibase-optimizer/internal/baseconv"
	"github.com/quantfabric/multibase-optimizer/internal/optimizer"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
)

// Register byte offsets, preserved bit-for-bit for host compatibility.
const (
	RegControl        = 0x000
	RegStatus         = 0x004
	RegBidPriceHi     = 0x008
	RegBidPriceLo     = 0x00C
	RegAskPriceHi     = 0x010
	RegAskPriceLo     = 0x014
	RegLastPriceHi    = 0x018
	RegLastPriceLo    = 0x01C
	RegBidSize        = 0x020
	RegAskSize        = 0x024
	RegBaseSelect     = 0x028
	RegRiskLimit      = 0x02C
	RegLatencyBudget  = 0x030
	RegStrategyID     = 0x034
	RegEntryPriceHi   = 0x038
	RegEntryPriceLo   = 0x03C
	RegExitPriceHi    = 0x040
	RegExitPriceLo    = 0x044
	RegQuantity       = 0x048
	RegExpectedProfit = 0x04C
	RegConfidence     = 0x050
	RegBaseUsed       = 0x054
	RegCyclesTaken    = 0x058
	RegBase12Adv      = 0x05C
	RegCompPerSec     = 0x060
)

// Control register bits.
const (
	CtrlStart  = 1 << 0
	CtrlEnable = 1 << 1
)

// Status register bits.
const (
	StatusReady      = 1 << 0
	StatusDone       = 1 << 5
	StatusTradeValid = 1 << 6
	StatusBusy       = 1 << 7
)

// DefaultClockHz is the modelled core clock rate used to derive the
// computations-per-second register.
const DefaultClockHz = 100_000_000

// Bank is the register bank plus the core it fronts.
type Bank struct {
	logger  *zap.Logger
	pipe    *optimizer.Pipeline
	pool    *baseconv.Pool
	clockHz uint64

	control     uint32
	bidHi       uint32
	bidLo       uint32
	askHi       uint32
	askLo       uint32
	lastHi      uint32
	lastLo      uint32
	bidSize     uint32
	askSize     uint32
	baseSelect  uint32
	riskLimit   uint32
	latency     uint32
	strategyID  uint32
	dataWritten bool

	startLatched bool
	done         bool
	ticks        uint64
	lastRuns     uint64
	compPerSec   uint32
}

// New constructs an enabled-capable bank with the documented register
// defaults. The core starts disabled; the host sets the enable bit.
func New(logger *zap.Logger, clockHz uint64) *Bank {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clockHz == 0 {
		clockHz = DefaultClockHz
	}
	return &Bank{
		logger:    logger,
		pipe:      optimizer.New(logger),
		pool:      baseconv.NewPool(logger),
		clockHz:   clockHz,
		riskLimit: 100000,
		latency:   100,
	}
}

// Pool exposes the converter pool for hosts that dispatch their own
// conversions; the pipeline itself evaluates inline.
func (b *Bank) Pool() *baseconv.Pool {
	return b.pool
}

// Pipeline exposes the pipeline for inspection in tests.
func (b *Bank) Pipeline() *optimizer.Pipeline {
	return b.pipe
}

func (b *Bank) enabled() bool {
	return b.control&CtrlEnable != 0
}

func (b *Bank) snapshot() optimizer.Snapshot {
	return optimizer.Snapshot{
		Bid:     fixed.Join(b.bidHi, b.bidLo),
		Ask:     fixed.Join(b.askHi, b.askLo),
		Last:    fixed.Join(b.lastHi, b.lastLo),
		BidSize: b.bidSize,
		AskSize: b.askSize,
		Valid:   b.dataWritten,
	}
}

func (b *Bank) params() optimizer.Params {
	return optimizer.Params{
		BaseSelect:    optimizer.BaseSelect(b.baseSelect & 0x3),
		RiskLimit:     b.riskLimit,
		LatencyBudget: uint16(b.latency),
		StrategyID:    uint8(b.strategyID),
	}
}

// reset is the global reset, entered by clearing the enable bit: the
// pipeline and every converter are forced idle and in-flight state is
// discarded. Input registers keep their values.
func (b *Bank) reset() {
	b.pipe.Reset()
	b.pool.Reset()
	b.startLatched = false
	b.done = false
	b.dataWritten = false
	b.lastRuns = 0
	b.ticks = 0
	b.compPerSec = 0
}

// Tick advances the core by one synchronous step.
func (b *Bank) Tick() {
	if !b.enabled() {
		return
	}
	b.ticks++

	if b.startLatched {
		// Write-one-to-pulse: the start bit clears one step after it was
		// observed set.
		b.control &^= CtrlStart
		b.startLatched = false
	} else if b.control&CtrlStart != 0 {
		b.pipe.Start(b.snapshot(), b.params())
		b.startLatched = true
		b.done = false
	}

	b.pipe.Step()
	b.pool.StepAll()

	if runs := b.pipe.RunsCompleted(); runs != b.lastRuns {
		b.lastRuns = runs
		b.done = true
		b.compPerSec = uint32(runs * b.clockHz / b.ticks)
	}
}

// status recomputes the status word; it is derived, never written.
func (b *Bank) status() uint32 {
	var s uint32
	if b.enabled() && !b.pipe.Busy() {
		s |= StatusReady
	}
	if b.done {
		s |= StatusDone
	}
	if res, ok := b.pipe.Result(); ok && res.TradeSignalValid {
		s |= StatusTradeValid
	}
	if b.pipe.Busy() {
		s |= StatusBusy
	}
	return s
}

// Read returns the word at the given byte offset. Reads of unmapped
// offsets return zero; result fields are undefined before the first
// completed run and read as zero.
func (b *Bank) Read(offset uint32) uint32 {
	switch offset {
	case RegControl:
		return b.control
	case RegStatus:
		return b.status()
	case RegBidPriceHi:
		return b.bidHi
	case RegBidPriceLo:
		return b.bidLo
	case RegAskPriceHi:
		return b.askHi
	case RegAskPriceLo:
		return b.askLo
	case RegLastPriceHi:
		return b.lastHi
	case RegLastPriceLo:
		return b.lastLo
	case RegBidSize:
		return b.bidSize
	case RegAskSize:
		return b.askSize
	case RegBaseSelect:
		return b.baseSelect
	case RegRiskLimit:
		return b.riskLimit
	case RegLatencyBudget:
		return b.latency
	case RegStrategyID:
		return b.strategyID
	case RegCompPerSec:
		return b.compPerSec
	}

	res, ok := b.pipe.Result()
	if !ok {
		return 0
	}
	switch offset {
	case RegEntryPriceHi:
		return res.EntryPrice.Hi()
	case RegEntryPriceLo:
		return res.EntryPrice.Lo()
	case RegExitPriceHi:
		return res.ExitPrice.Hi()
	case RegExitPriceLo:
		return res.ExitPrice.Lo()
	case RegQuantity:
		return res.Quantity
	case RegExpectedProfit:
		return uint32(res.ExpectedProfit)
	case RegConfidence:
		return uint32(res.Confidence)
	case RegBaseUsed:
		return uint32(res.BaseUsed)
	case RegCyclesTaken:
		return res.CyclesTaken
	case RegBase12Adv:
		return res.Base12Advantage
	}
	return 0
}

// Write stores the word at the given byte offset. Writes to read-only or
// unmapped offsets are ignored.
func (b *Bank) Write(offset, value uint32) {
	switch offset {
	case RegControl:
		wasEnabled := b.enabled()
		b.control = value & (CtrlStart | CtrlEnable)
		if wasEnabled && !b.enabled() {
			b.reset()
		}
	case RegBidPriceHi:
		b.bidHi = value
		b.dataWritten = true
	case RegBidPriceLo:
		b.bidLo = value
		b.dataWritten = true
	case RegAskPriceHi:
		b.askHi = value
		b.dataWritten = true
	case RegAskPriceLo:
		b.askLo = value
		b.dataWritten = true
	case RegLastPriceHi:
		b.lastHi = value
		b.dataWritten = true
	case RegLastPriceLo:
		b.lastLo = value
		b.dataWritten = true
	case RegBidSize:
		b.bidSize = value
		b.dataWritten = true
	case RegAskSize:
		b.askSize = value
		b.dataWritten = true
	case RegBaseSelect:
		b.baseSelect = value
	case RegRiskLimit:
		b.riskLimit = value
	case RegLatencyBudget:
		b.latency = value & 0xFFFF
	case RegStrategyID:
		b.strategyID = value & 0xFF
	default:
		b.logger.Debug("ignored write to unmapped or read-only register",
			zap.Uint32("offset", offset),
			zap.Uint32("value", value),
		)
	}
}

// RunResult returns the last completed run's result in structured form,
// for in-process hosts that do not want to reassemble it from registers.
func (b *Bank) RunResult() (optimizer.Result, bool) {
	return b.pipe.Result()
}
