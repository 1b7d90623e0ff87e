// Package output provides utilities for formatting and displaying run and
// benchmark results.
package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantfabric/multibase-optimizer/internal/baseconv"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"github.com/quantfabric/multibase-optimizer/pkg/host"
	"github.com/quantfabric/multibase-optimizer/pkg/strategy"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dozenalDigits are the base-12 digit symbols: 0-9, A (ten), B (eleven).
const dozenalDigits = "0123456789AB"

// maxDozenalFracDigits bounds the rendered fractional digits.
const maxDozenalFracDigits = 8

// Dozenal renders a fixed-point price in base-12 positional notation.
func Dozenal(p fixed.Price) string {
	intPart := uint64(p) >> fixed.FractionalBits
	frac := uint64(p) & (fixed.Scale - 1)

	var sb strings.Builder
	if intPart == 0 {
		sb.WriteByte('0')
	} else {
		var digits []byte
		for intPart > 0 {
			digits = append(digits, dozenalDigits[intPart%12])
			intPart /= 12
		}
		for i := len(digits) - 1; i >= 0; i-- {
			sb.WriteByte(digits[i])
		}
	}

	if frac != 0 {
		sb.WriteByte(';') // dozenal fraction point
		for i := 0; i < maxDozenalFracDigits && frac != 0; i++ {
			frac *= 12
			sb.WriteByte(dozenalDigits[frac>>fixed.FractionalBits])
			frac &= fixed.Scale - 1
		}
	}
	return sb.String()
}

// PrettyResult outputs a human-readable report for one run.
func PrettyResult(res *host.Result, strategyID uint8) {
	p := message.NewPrinter(language.English)
	fmt.Printf("--- Optimization result (run %s) ---\n", res.RunID)
	fmt.Printf("Strategy:         %s\n", strategy.Name(strategyID))
	_, _ = p.Printf("Entry Price:      $%.4f (dozenal %s)\n", res.EntryPrice, Dozenal(fixed.FromFloat(res.EntryPrice)))
	_, _ = p.Printf("Exit Price:       $%.4f\n", res.ExitPrice)
	_, _ = p.Printf("Quantity:         %d\n", res.Quantity)
	_, _ = p.Printf("Expected Profit:  %d\n", res.ExpectedProfit)
	_, _ = p.Printf("Confidence:       %.2f%%\n", float64(res.Confidence)/100)
	fmt.Printf("Base Used:        %s\n", res.BaseUsed)
	_, _ = p.Printf("Cycles Taken:     %d\n", res.CyclesTaken)
	_, _ = p.Printf("Base-12 Advantage: %d cycles\n", res.Base12Advantage)
	_, _ = p.Printf("Spread / Mid:     $%.4f / $%.4f\n", res.Spread, res.MidPrice)
	signal := "HOLD"
	if res.TradeSignalValid {
		signal = "TRADE"
	}
	fmt.Printf("Signal:           %s\n", signal)
}

// PrettyBenchmark outputs a human-readable benchmark summary.
func PrettyBenchmark(b *host.BenchmarkResult) {
	p := message.NewPrinter(language.English)
	fmt.Printf("--- Benchmark results (%d iterations) ---\n", b.Iterations)
	_, _ = p.Printf("Total Time:   %s\n", b.TotalTime)
	_, _ = p.Printf("Throughput:   %.0f ops/sec\n", b.Throughput)
	_, _ = p.Printf("Latency:      avg %s, min %s, max %s\n", b.AvgLatency, b.MinLatency, b.MaxLatency)
	_, _ = p.Printf("Avg Cycles:   %.1f\n", b.AvgCycles)
	_, _ = p.Printf("Trades:       %d\n", b.TradeCount)
	_, _ = p.Printf("Core Rate:    %d computations/sec\n", b.LastCompSec)

	bases := make([]baseconv.Base, 0, len(b.BaseUsage))
	for base := range b.BaseUsage {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	for _, base := range bases {
		count := b.BaseUsage[base]
		_, _ = p.Printf("  %-8s %d (%.1f%%)\n", base, count, 100*float64(count)/float64(b.Iterations))
	}
	_, _ = p.Printf("Base-12 Usage: %.1f%%\n", b.DozenalPct)
}
