// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/quantfabric/multibase-optimizer/internal/optimizer"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
)

// Snapshot builds a valid market snapshot from float prices.
func Snapshot(bid, ask, last float64, bidSize, askSize uint32) optimizer.Snapshot {
	return optimizer.Snapshot{
		Bid:     fixed.FromFloat(bid),
		Ask:     fixed.FromFloat(ask),
		Last:    fixed.FromFloat(last),
		BidSize: bidSize,
		AskSize: askSize,
		Valid:   true,
	}
}

// DefaultParams returns the documented register defaults with automatic
// base selection.
func DefaultParams() optimizer.Params {
	return optimizer.Params{
		BaseSelect:    optimizer.SelectAuto,
		RiskLimit:     100000,
		LatencyBudget: 100,
	}
}

// RunPipeline starts a run and steps the pipeline until it returns to
// idle, then returns the latched result. The step bound is generous; a
// healthy run always completes within it.
func RunPipeline(p *optimizer.Pipeline, snap optimizer.Snapshot, params optimizer.Params) (optimizer.Result, bool) {
	p.Start(snap, params)
	for i := 0; i < 24; i++ {
		p.Step()
		if i > 0 && !p.Busy() {
			break
		}
	}
	return p.Result()
}
