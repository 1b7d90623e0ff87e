package host

import (
	"fmt"
	"time"

	"github.com/quantfabric/multibase-optimizer/internal/baseconv"
)

// BenchmarkResult aggregates latency and base-usage statistics over a
// series of runs.
type BenchmarkResult struct {
	Iterations  int
	TotalTime   time.Duration
	AvgLatency  time.Duration
	MinLatency  time.Duration
	MaxLatency  time.Duration
	Throughput  float64
	AvgCycles   float64
	BaseUsage   map[baseconv.Base]int
	DozenalPct  float64
	TradeCount  int
	LastCompSec uint32
}

// Benchmark runs the request repeatedly, perturbing the prices slightly
// each iteration for a realistic mix, and aggregates the results.
func (d *Driver) Benchmark(req Request, iterations int, priceStep float64) (*BenchmarkResult, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("benchmark iterations must be positive, got %d", iterations)
	}

	out := &BenchmarkResult{
		Iterations: iterations,
		BaseUsage:  make(map[baseconv.Base]int),
	}
	var totalCycles uint64
	started := time.Now()

	for i := 0; i < iterations; i++ {
		r := req
		delta := float64(i%10) * priceStep
		r.BidPrice += delta
		r.AskPrice += delta
		r.LastPrice += delta

		res, err := d.Optimize(r)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		if out.MinLatency == 0 || res.Latency < out.MinLatency {
			out.MinLatency = res.Latency
		}
		if res.Latency > out.MaxLatency {
			out.MaxLatency = res.Latency
		}
		out.AvgLatency += res.Latency
		out.BaseUsage[res.BaseUsed]++
		totalCycles += uint64(res.CyclesTaken)
		if res.TradeSignalValid {
			out.TradeCount++
		}
		out.LastCompSec = res.CompPerSec
	}

	out.TotalTime = time.Since(started)
	out.AvgLatency /= time.Duration(iterations)
	out.Throughput = float64(iterations) / out.TotalTime.Seconds()
	out.AvgCycles = float64(totalCycles) / float64(iterations)
	out.DozenalPct = 100 * float64(out.BaseUsage[baseconv.Dozenal]) / float64(iterations)
	return out, nil
}
