package regbank

import (
	"testing"

	"github.com/quantfabric/multibase-optimizer/internal/optimizer"
	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"github.com/quantfabric/multibase-optimizer/pkg/testutil"
	"go.uber.org/zap"
)

func writePrice(b *Bank, hi, lo uint32, v float64) {
	p := fixed.FromFloat(v)
	b.Write(hi, p.Hi())
	b.Write(lo, p.Lo())
}

// loadExample writes the reference market snapshot into the input registers.
func loadExample(b *Bank) {
	writePrice(b, RegBidPriceHi, RegBidPriceLo, 100.25)
	writePrice(b, RegAskPriceHi, RegAskPriceLo, 100.28)
	writePrice(b, RegLastPriceHi, RegLastPriceLo, 100.26)
	b.Write(RegBidSize, 1000)
	b.Write(RegAskSize, 1200)
}

func TestRegisterDefaults(t *testing.T) {
	b := New(zap.NewNop(), 0)
	if got := b.Read(RegRiskLimit); got != 100000 {
		t.Errorf("risk limit default = %d, want 100000", got)
	}
	if got := b.Read(RegLatencyBudget); got != 100 {
		t.Errorf("latency budget default = %d, want 100", got)
	}
	if got := b.Read(RegControl); got != 0 {
		t.Errorf("control default = %#x, want 0", got)
	}
}

func TestInputRegistersReadBack(t *testing.T) {
	b := New(zap.NewNop(), 0)
	cases := []struct {
		offset uint32
		value  uint32
	}{
		{RegBidPriceHi, 0x64}, {RegBidPriceLo, 0x40000000},
		{RegAskPriceHi, 0x64}, {RegAskPriceLo, 0x47AE147A},
		{RegLastPriceHi, 0x64}, {RegLastPriceLo, 0x428F5C28},
		{RegBidSize, 1000}, {RegAskSize, 1200},
		{RegBaseSelect, 2}, {RegRiskLimit, 50000},
		{RegLatencyBudget, 0x0800}, {RegStrategyID, 3},
	}
	for _, tc := range cases {
		b.Write(tc.offset, tc.value)
		if got := b.Read(tc.offset); got != tc.value {
			t.Errorf("offset %#x read back %#x, want %#x", tc.offset, got, tc.value)
		}
	}
}

func TestUnmappedOffsets(t *testing.T) {
	b := New(zap.NewNop(), 0)
	if got := b.Read(0x100); got != 0 {
		t.Errorf("unmapped read = %d, want 0", got)
	}
	b.Write(0x100, 0xDEADBEEF) // ignored
	if got := b.Read(0x100); got != 0 {
		t.Errorf("unmapped read after write = %d, want 0", got)
	}
	// Result registers are read-only; a write must not disturb them.
	b.Write(RegQuantity, 42)
	if got := b.Read(RegQuantity); got != 0 {
		t.Errorf("quantity after host write = %d, want 0 before first run", got)
	}
}

func TestStartPulseAutoClears(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlEnable|CtrlStart)

	b.Tick()
	if b.Read(RegControl)&CtrlStart == 0 {
		t.Fatal("start bit cleared before the step after observation")
	}
	b.Tick()
	if b.Read(RegControl)&CtrlStart != 0 {
		t.Fatal("start bit not auto-cleared one step after observation")
	}
}

func TestStatusProgressionThroughRun(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlEnable)
	if s := b.Read(RegStatus); s&StatusReady == 0 || s&StatusBusy != 0 {
		t.Fatalf("expected ready and not busy before start, status = %#x", s)
	}

	b.Write(RegControl, CtrlEnable|CtrlStart)
	b.Tick()
	if s := b.Read(RegStatus); s&StatusBusy == 0 || s&StatusDone != 0 {
		t.Fatalf("expected busy and not done mid-run, status = %#x", s)
	}

	ticks := 1
	for ; ticks < 20 && b.Read(RegStatus)&StatusDone == 0; ticks++ {
		b.Tick()
	}
	if ticks != 12 {
		t.Errorf("run completed after %d ticks, want 12", ticks)
	}
	s := b.Read(RegStatus)
	if s&StatusDone == 0 || s&StatusReady == 0 || s&StatusBusy != 0 {
		t.Errorf("status after run = %#x, want done|ready and not busy", s)
	}
	if s&StatusTradeValid == 0 {
		t.Error("trade valid not set for the reference snapshot")
	}
}

func TestResultRegistersAfterRun(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlEnable|CtrlStart)
	for i := 0; i < 12; i++ {
		b.Tick()
	}

	res, ok := b.RunResult()
	if !ok {
		t.Fatal("no structured result after run")
	}
	entry := fixed.Join(b.Read(RegEntryPriceHi), b.Read(RegEntryPriceLo))
	if entry != res.EntryPrice {
		t.Errorf("entry price registers = %d, want %d", uint64(entry), uint64(res.EntryPrice))
	}
	exit := fixed.Join(b.Read(RegExitPriceHi), b.Read(RegExitPriceLo))
	if exit != res.ExitPrice {
		t.Errorf("exit price registers = %d, want %d", uint64(exit), uint64(res.ExitPrice))
	}
	if got := b.Read(RegQuantity); got != res.Quantity {
		t.Errorf("quantity register = %d, want %d", got, res.Quantity)
	}
	if got := b.Read(RegConfidence); got != uint32(res.Confidence) {
		t.Errorf("confidence register = %d, want %d", got, res.Confidence)
	}
	if got := b.Read(RegBaseUsed); got != uint32(res.BaseUsed) {
		t.Errorf("base used register = %d, want %d", got, res.BaseUsed)
	}
	if got := b.Read(RegCyclesTaken); got != 11 {
		t.Errorf("cycles taken register = %d, want 11", got)
	}
	if got := b.Read(RegCompPerSec); got == 0 {
		t.Error("computations per second register still zero after a run")
	}
}

func TestDisabledCoreIgnoresStartAndTicks(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlStart) // start without enable is masked to no run
	for i := 0; i < 20; i++ {
		b.Tick()
	}
	if s := b.Read(RegStatus); s&StatusDone != 0 {
		t.Errorf("disabled core completed a run, status = %#x", s)
	}
}

func TestClearingEnableResetsCore(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlEnable|CtrlStart)
	for i := 0; i < 5; i++ {
		b.Tick() // mid-run
	}
	if !b.Pipeline().Busy() {
		t.Fatal("pipeline not busy mid-run")
	}

	b.Write(RegControl, 0)
	if b.Pipeline().Busy() {
		t.Error("pipeline still busy after reset")
	}
	if s := b.Read(RegStatus); s != 0 {
		t.Errorf("status after reset = %#x, want 0 while disabled", s)
	}

	// Inputs survive the reset but the data-valid latch does not: a start
	// needs a fresh snapshot write.
	b.Write(RegControl, CtrlEnable|CtrlStart)
	b.Tick()
	if b.Pipeline().Busy() {
		t.Error("run started without rewritten market data after reset")
	}
	b.Tick() // let the dropped start pulse auto-clear
	loadExample(b)
	b.Write(RegControl, CtrlEnable|CtrlStart)
	b.Tick()
	if !b.Pipeline().Busy() {
		t.Error("run did not start after market data rewrite")
	}
}

func TestRegisterRunMatchesDirectPipelineRun(t *testing.T) {
	// Driving the core through the register map must produce exactly the
	// result of stepping a bare pipeline with the same inputs.
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegControl, CtrlEnable|CtrlStart)
	for i := 0; i < 12; i++ {
		b.Tick()
	}
	regRes, ok := b.RunResult()
	if !ok {
		t.Fatal("no result from register-driven run")
	}

	p := optimizer.New(zap.NewNop())
	snap := testutil.Snapshot(100.25, 100.28, 100.26, 1000, 1200)
	directRes, ok := testutil.RunPipeline(p, snap, testutil.DefaultParams())
	if !ok {
		t.Fatal("no result from direct pipeline run")
	}

	if regRes != directRes {
		t.Errorf("register run result %+v differs from direct run %+v", regRes, directRes)
	}
}

func TestBaseSelectMasksToTwoBits(t *testing.T) {
	b := New(zap.NewNop(), 0)
	loadExample(b)
	b.Write(RegBaseSelect, 0x7) // low two bits encode binary
	b.Write(RegControl, CtrlEnable|CtrlStart)
	for i := 0; i < 12; i++ {
		b.Tick()
	}
	res, ok := b.RunResult()
	if !ok {
		t.Fatal("no result")
	}
	if res.BaseUsed.String() == "" {
		t.Fatal("unexpected empty base name")
	}
	if got := b.Pipeline().SelectedBase().String(); got != "binary" {
		t.Errorf("selected base = %s, want binary from masked selector", got)
	}
}
