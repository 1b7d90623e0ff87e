// Package optimizer implements the trade optimizer pipeline: a strictly
// sequential, fixed-length state machine that evaluates a market snapshot
// under binary, decimal, and dozenal candidate pricing, compares the
// candidates, applies a risk gate, and emits a trade recommendation. One
// state executes per step and a started run always completes in the same
// number of steps regardless of data values.
package optimizer

import (
	"fmt"

	"github.com/quantfabric/multibase-optimizer/internal/baseconv"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
)

// State is the pipeline state. Transitions are strictly sequential with a
// terminal wrap from OUTPUT_RESULTS back to IDLE.
type State uint8

const (
	StateIdle State = iota
	StateLoadMarketData
	StateSelectBase
	StateCalcSpread
	StateCalcMidPrice
	StateEvaluateDozenal
	StateEvaluateDecimal
	StateEvaluateBinary
	StateCompareResults
	StateRiskCheck
	StateOptimize
	StateOutputResults
)

var stateNames = [...]string{
	"IDLE", "LOAD_MARKET_DATA", "SELECT_BASE", "CALC_SPREAD",
	"CALC_MID_PRICE", "EVALUATE_DOZENAL", "EVALUATE_DECIMAL",
	"EVALUATE_BINARY", "COMPARE_RESULTS", "RISK_CHECK", "OPTIMIZE",
	"OUTPUT_RESULTS",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// BaseSelect is the host-facing base selector, a 2-bit field whose fourth
// encoding requests automatic selection.
type BaseSelect uint8

const (
	SelectAuto    BaseSelect = 0
	SelectDecimal BaseSelect = 1
	SelectDozenal BaseSelect = 2
	SelectBinary  BaseSelect = 3
)

// Base maps an explicit selector to its base. The second return is false
// for SelectAuto.
func (s BaseSelect) Base() (baseconv.Base, bool) {
	switch s {
	case SelectDecimal:
		return baseconv.Decimal, true
	case SelectDozenal:
		return baseconv.Dozenal, true
	case SelectBinary:
		return baseconv.Binary, true
	}
	return 0, false
}

// Fixed per-base cycle cost estimates used by the latency gate.
const (
	CostBinary  uint32 = 5
	CostDozenal uint32 = 8
	CostDecimal uint32 = 12
)

// Snapshot is one atomically captured view of the market. It is latched at
// run start and immutable for the run's duration.
type Snapshot struct {
	Bid     fixed.Price
	Ask     fixed.Price
	Last    fixed.Price
	BidSize uint32
	AskSize uint32
	Valid   bool
}

// Params are the strategy parameters read once per run. StrategyID is
// accepted and stored but does not vary the computation.
type Params struct {
	BaseSelect    BaseSelect
	RiskLimit     uint32
	LatencyBudget uint16
	StrategyID    uint8
}

// Result is the recommendation produced exactly once per run. It remains
// visible until overwritten by the next completed run.
type Result struct {
	EntryPrice       fixed.Price
	ExitPrice        fixed.Price
	Quantity         uint32
	BaseUsed         baseconv.Base
	ExpectedProfit   int32
	Confidence       uint16
	CyclesTaken      uint32
	Base12Advantage  uint32
	TradeSignalValid bool
}

// Pipeline is the optimizer state machine. Exactly one instance is active;
// callers advance it with Step and never observe partial per-state work.
type Pipeline struct {
	logger *zap.Logger

	state    State
	startReq bool
	nextSnap Snapshot
	nextPar  Params

	// Latched per run.
	snap   Snapshot
	params Params
	cycles uint32

	// Working registers.
	selected   baseconv.Base
	spread     fixed.Price
	mid        fixed.Price
	candidate  [3]fixed.Price
	profit     [3]int32
	winner     baseconv.Base
	base12Adv  uint32
	posRisk    uint64
	confidence uint16
	slippage   fixed.Price
	quantity   uint32

	// Quantity from the previous completed run; the risk gate reads it
	// before OPTIMIZE produces the new one.
	prevQuantity uint32

	result        Result
	resultValid   bool
	runsCompleted uint64
}

// New constructs an idle pipeline.
func New(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

// Start stages a run request. The request is consumed on the next IDLE
// step and only takes effect if the snapshot is valid at that instant;
// a start pulse with no market data written is dropped.
func (p *Pipeline) Start(snap Snapshot, params Params) {
	p.startReq = true
	p.nextSnap = snap
	p.nextPar = params
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return p.state
}

// Busy reports whether a run is in progress.
func (p *Pipeline) Busy() bool {
	return p.state != StateIdle
}

// SelectedBase returns the advisory base chosen in SELECT_BASE for the
// current or most recent run.
func (p *Pipeline) SelectedBase() baseconv.Base {
	return p.selected
}

// Result returns the last completed run's recommendation and whether one
// has been produced since reset.
func (p *Pipeline) Result() (Result, bool) {
	return p.result, p.resultValid
}

// RunsCompleted returns the running count of completed runs, used for
// throughput reporting.
func (p *Pipeline) RunsCompleted() uint64 {
	return p.runsCompleted
}

// Reset is the global reset: it forces IDLE immediately, discards in-flight
// state, and clears cross-run carry including the prior-run quantity.
func (p *Pipeline) Reset() {
	p.state = StateIdle
	p.startReq = false
	p.resultValid = false
	p.prevQuantity = 0
	p.runsCompleted = 0
}

// Step advances the pipeline by one state transition.
func (p *Pipeline) Step() {
	if p.state != StateIdle {
		p.cycles++
	}
	switch p.state {
	case StateIdle:
		start := p.startReq
		p.startReq = false
		if start && p.nextSnap.Valid {
			p.snap = p.nextSnap
			p.params = p.nextPar
			p.cycles = 0
			p.state = StateLoadMarketData
		}
	case StateLoadMarketData:
		p.state = StateSelectBase
	case StateSelectBase:
		p.selected = p.selectBase()
		p.state = StateCalcSpread
	case StateCalcSpread:
		p.spread = p.snap.Ask.Sub(p.snap.Bid)
		p.state = StateCalcMidPrice
	case StateCalcMidPrice:
		p.mid = fixed.Price(((uint64(p.snap.Bid) + uint64(p.snap.Ask)) >> 1) & fixed.Mask)
		p.state = StateEvaluateDozenal
	case StateEvaluateDozenal:
		p.evaluate(baseconv.Dozenal, uint64(p.spread)/12+uint64(p.spread)/144)
		p.state = StateEvaluateDecimal
	case StateEvaluateDecimal:
		p.evaluate(baseconv.Decimal, uint64(p.spread)/10+uint64(p.spread)/100)
		p.state = StateEvaluateBinary
	case StateEvaluateBinary:
		p.evaluate(baseconv.Binary, (uint64(p.spread)>>3)+(uint64(p.spread)>>6))
		p.state = StateCompareResults
	case StateCompareResults:
		p.compare()
		p.state = StateRiskCheck
	case StateRiskCheck:
		p.posRisk = (uint64(p.prevQuantity) * uint64(p.spread)) >> 16
		p.confidence = p.gradeConfidence()
		p.state = StateOptimize
	case StateOptimize:
		p.slippage = p.spread >> 2
		p.quantity = 0
		if p.posRisk < uint64(p.params.RiskLimit) {
			p.quantity = uint32(uint64(p.params.RiskLimit) * uint64(p.confidence) / 10000)
		}
		p.state = StateOutputResults
	case StateOutputResults:
		p.output()
		p.state = StateIdle
	default:
		// Illegal state self-heals to IDLE; logged as an anomaly, never
		// surfaced as a fault.
		p.logger.Warn("optimizer pipeline in illegal state, recovering",
			zap.Uint8("state", uint8(p.state)),
		)
		p.state = StateIdle
	}
}

// selectBase applies the advisory base selection heuristic. All three bases
// are still evaluated downstream regardless of this choice.
func (p *Pipeline) selectBase() baseconv.Base {
	if b, ok := p.params.BaseSelect.Base(); ok {
		return b
	}
	bid, ask := uint64(p.snap.Bid), uint64(p.snap.Ask)
	switch {
	case bid&0xFFF == 0 || ask&0xFFF == 0:
		return baseconv.Dozenal
	case bid&0xFF == 0 || ask&0xFF == 0:
		return baseconv.Binary
	default:
		return baseconv.Decimal
	}
}

// evaluate records one base's candidate price and profit estimate. The
// profit formula is identical across bases; the bases differ only in
// price adjustment and cycle cost.
func (p *Pipeline) evaluate(b baseconv.Base, adjustment uint64) {
	cand := fixed.Price((uint64(p.mid) + adjustment) & fixed.Mask)
	p.candidate[b] = cand
	p.profit[b] = int32(((int64(cand) - int64(p.snap.Last)) * 1000) >> 16)
}

func baseCost(b baseconv.Base) uint32 {
	switch b {
	case baseconv.Dozenal:
		return CostDozenal
	case baseconv.Binary:
		return CostBinary
	default:
		return CostDecimal
	}
}

// compare picks the winning base: highest expected profit, ties broken
// dozenal over binary over decimal, admitted only if its fixed cycle cost
// fits the latency ceiling (upper byte of the latency budget). Otherwise
// the better of binary and decimal wins, binary on ties.
func (p *Pipeline) compare() {
	tieOrder := [3]baseconv.Base{baseconv.Dozenal, baseconv.Binary, baseconv.Decimal}
	best := tieOrder[0]
	for _, b := range tieOrder[1:] {
		if p.profit[b] > p.profit[best] {
			best = b
		}
	}
	ceiling := uint32(p.params.LatencyBudget >> 8)
	if baseCost(best) > ceiling {
		best = baseconv.Binary
		if p.profit[baseconv.Decimal] > p.profit[baseconv.Binary] {
			best = baseconv.Decimal
		}
	}
	p.winner = best
	p.base12Adv = 0
	if best == baseconv.Dozenal {
		p.base12Adv = CostDecimal - CostDozenal
	}
}

// gradeConfidence buckets the spread against mid-relative thresholds.
func (p *Pipeline) gradeConfidence() uint16 {
	switch {
	case p.spread < p.mid>>8:
		return 9500
	case p.spread < p.mid>>6:
		return 8000
	default:
		return 5000
	}
}

// output latches the run result and updates cross-run carry.
func (p *Pipeline) output() {
	entry := p.candidate[p.winner]
	profit := p.profit[p.winner]

	p.result = Result{
		EntryPrice:       entry,
		ExitPrice:        entry.AddSigned(int64(profit) >> 10),
		Quantity:         p.quantity,
		BaseUsed:         p.winner,
		ExpectedProfit:   profit,
		Confidence:       p.confidence,
		CyclesTaken:      p.cycles,
		Base12Advantage:  p.base12Adv,
		TradeSignalValid: p.quantity > 0 && p.posRisk < uint64(p.params.RiskLimit),
	}
	p.resultValid = true
	p.prevQuantity = p.quantity
	p.runsCompleted++
}
