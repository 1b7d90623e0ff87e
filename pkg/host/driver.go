// Package host provides the host-side driver for the optimizer core. It
// speaks only the 32-bit register map: it packs prices into the 48-bit
// fixed-point words, pulses start, polls status until done, and reassembles
// results. The in-process register bank satisfies its interfaces directly;
// a memory-mapped device would satisfy them the same way.
package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantfabric/multibase-optimizer/internal/baseconv"
	"github.com/quantfabric/multibase-optimizer/internal/optimizer"
	"github.com/quantfabric/multibase-optimizer/internal/regbank"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
)

// RegisterSpace is a 32-bit word register file addressed by byte offset.
type RegisterSpace interface {
	Read(offset uint32) uint32
	Write(offset, value uint32)
}

// Clock advances the core by one synchronous step. In-process hosts tick
// the bank themselves; a hardware-backed implementation is a no-op.
type Clock interface {
	Tick()
}

// runStepBound is the deterministic length of one pipeline run in steps.
const runStepBound = 12

// stallMargin is how many extra steps the driver allows before declaring a
// stall. Run length is fixed, so anything beyond the bound plus margin is a
// clocking or reset fault, not a slow computation.
const stallMargin = 4

// ErrStalled reports a liveness failure: busy without done beyond the
// deterministic run bound. The driver never retries; reset policy belongs
// to the caller.
var ErrStalled = errors.New("optimizer core stalled: busy without done beyond run bound")

// Request carries one optimization request in host units.
type Request struct {
	BidPrice   float64
	AskPrice   float64
	LastPrice  float64
	BidSize    uint32
	AskSize    uint32
	BaseSelect optimizer.BaseSelect
	RiskLimit  uint32
	// LatencyBudget's upper byte is the cycle ceiling for the latency gate.
	LatencyBudget uint16
	StrategyID    uint8
}

// Result is one completed run read back from the result registers.
type Result struct {
	RunID            uuid.UUID
	EntryPrice       float64
	ExitPrice        float64
	Quantity         uint32
	ExpectedProfit   int32
	Confidence       uint16
	BaseUsed         baseconv.Base
	CyclesTaken      uint32
	Base12Advantage  uint32
	CompPerSec       uint32
	TradeSignalValid bool
	Spread           float64
	MidPrice         float64
	Latency          time.Duration
}

// Status is the decoded status word.
type Status struct {
	Ready      bool
	Done       bool
	TradeValid bool
	Busy       bool
	CompPerSec uint32
}

// Driver drives one optimizer core through its register space.
type Driver struct {
	logger *zap.Logger
	regs   RegisterSpace
	clock  Clock
}

// NewDriver constructs a driver. A nil clock means the core is externally
// clocked and the driver only polls.
func NewDriver(logger *zap.Logger, regs RegisterSpace, clock Clock) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{logger: logger, regs: regs, clock: clock}
}

// Enable sets the enable bit without starting a run.
func (d *Driver) Enable() {
	d.regs.Write(regbank.RegControl, regbank.CtrlEnable)
}

// Reset drops and re-raises the enable bit, forcing the core to IDLE and
// discarding in-flight state.
func (d *Driver) Reset() {
	d.regs.Write(regbank.RegControl, 0)
	d.regs.Write(regbank.RegControl, regbank.CtrlEnable)
}

// Status reads and decodes the status word.
func (d *Driver) Status() Status {
	s := d.regs.Read(regbank.RegStatus)
	return Status{
		Ready:      s&regbank.StatusReady != 0,
		Done:       s&regbank.StatusDone != 0,
		TradeValid: s&regbank.StatusTradeValid != 0,
		Busy:       s&regbank.StatusBusy != 0,
		CompPerSec: d.regs.Read(regbank.RegCompPerSec),
	}
}

// WritePrice packs a float price into the 48-bit fixed-point word split
// across the hi/lo register pair at the given offsets.
func (d *Driver) WritePrice(hiOffset, loOffset uint32, price float64) {
	p := fixed.FromFloat(price)
	d.regs.Write(hiOffset, p.Hi())
	d.regs.Write(loOffset, p.Lo())
}

// ReadPrice reassembles a float price from a hi/lo register pair.
func (d *Driver) ReadPrice(hiOffset, loOffset uint32) float64 {
	return fixed.Join(d.regs.Read(hiOffset), d.regs.Read(loOffset)).Float()
}

// Optimize runs one optimization: writes the request, pulses start, and
// advances or polls the core until done. Returns ErrStalled when busy
// persists past the deterministic run bound.
func (d *Driver) Optimize(req Request) (*Result, error) {
	runID := uuid.New()
	started := time.Now()

	d.WritePrice(regbank.RegBidPriceHi, regbank.RegBidPriceLo, req.BidPrice)
	d.WritePrice(regbank.RegAskPriceHi, regbank.RegAskPriceLo, req.AskPrice)
	d.WritePrice(regbank.RegLastPriceHi, regbank.RegLastPriceLo, req.LastPrice)
	d.regs.Write(regbank.RegBidSize, req.BidSize)
	d.regs.Write(regbank.RegAskSize, req.AskSize)
	d.regs.Write(regbank.RegBaseSelect, uint32(req.BaseSelect))
	d.regs.Write(regbank.RegRiskLimit, req.RiskLimit)
	d.regs.Write(regbank.RegLatencyBudget, uint32(req.LatencyBudget))
	d.regs.Write(regbank.RegStrategyID, uint32(req.StrategyID))

	d.regs.Write(regbank.RegControl, regbank.CtrlEnable|regbank.CtrlStart)

	done := false
	for i := 0; i < runStepBound+stallMargin; i++ {
		if d.clock != nil {
			d.clock.Tick()
		}
		if d.regs.Read(regbank.RegStatus)&regbank.StatusDone != 0 {
			done = true
			break
		}
	}
	if !done {
		d.logger.Error("run did not complete within bound",
			zap.String("run_id", runID.String()),
			zap.Int("steps", runStepBound+stallMargin),
		)
		return nil, fmt.Errorf("run %s: %w", runID, ErrStalled)
	}

	status := d.regs.Read(regbank.RegStatus)
	res := &Result{
		RunID:            runID,
		EntryPrice:       d.ReadPrice(regbank.RegEntryPriceHi, regbank.RegEntryPriceLo),
		ExitPrice:        d.ReadPrice(regbank.RegExitPriceHi, regbank.RegExitPriceLo),
		Quantity:         d.regs.Read(regbank.RegQuantity),
		ExpectedProfit:   int32(d.regs.Read(regbank.RegExpectedProfit)),
		Confidence:       uint16(d.regs.Read(regbank.RegConfidence)),
		BaseUsed:         baseconv.Base(d.regs.Read(regbank.RegBaseUsed)),
		CyclesTaken:      d.regs.Read(regbank.RegCyclesTaken),
		Base12Advantage:  d.regs.Read(regbank.RegBase12Adv),
		CompPerSec:       d.regs.Read(regbank.RegCompPerSec),
		TradeSignalValid: status&regbank.StatusTradeValid != 0,
		Spread:           req.AskPrice - req.BidPrice,
		MidPrice:         (req.BidPrice + req.AskPrice) / 2,
		Latency:          time.Since(started),
	}

	d.logger.Debug("run complete",
		zap.String("run_id", runID.String()),
		zap.String("base_used", res.BaseUsed.String()),
		zap.Uint32("quantity", res.Quantity),
		zap.Bool("trade_signal", res.TradeSignalValid),
		zap.Uint32("cycles", res.CyclesTaken),
	)
	return res, nil
}
