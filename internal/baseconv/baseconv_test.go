package baseconv

import (
	"errors"
	"testing"

	"github.com/quantfabric/multibase-optimizer/pkg/fixed"
	"go.uber.org/zap"
)

func TestConvertIdentityPairs(t *testing.T) {
	cases := []struct {
		name   string
		source Base
		target Base
	}{
		{"binary to binary", Binary, Binary},
		{"decimal to decimal", Decimal, Decimal},
		{"dozenal to dozenal", Dozenal, Dozenal},
		{"binary to decimal", Binary, Decimal},
		{"decimal to binary", Decimal, Binary},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, v := range []uint64{0, 1, 12, 144, 4096, 430570471424} {
				got, ok := Convert(v, tc.source, tc.target)
				if !ok {
					t.Fatalf("Convert(%d, %s, %s) reported unsupported", v, tc.source, tc.target)
				}
				if got != v {
					t.Errorf("Convert(%d, %s, %s) = %d, want identity", v, tc.source, tc.target, got)
				}
			}
		})
	}
}

func TestConvertDozenalDigitPacking(t *testing.T) {
	cases := []struct {
		value uint64
		want  uint64
	}{
		{0, 0x0},
		{1, 0x1},
		{11, 0xB},
		{12, 0x10},   // one twelve, zero units
		{144, 0x100}, // one gross
		{155, 0x10B}, // 144 + 0 + 11
		{23, 0x1B},   // one twelve, eleven units
	}

	for _, tc := range cases {
		got, ok := Convert(tc.value, Binary, Dozenal)
		if !ok {
			t.Fatalf("Convert(%d, binary, dozenal) reported unsupported", tc.value)
		}
		if got != tc.want {
			t.Errorf("Convert(%d, binary, dozenal) = %#x, want %#x", tc.value, got, tc.want)
		}
	}
}

func TestConvertRoundTripThroughDozenal(t *testing.T) {
	// Any value within the 16-digit limit must survive the round trip.
	values := []uint64{0, 1, 7, 12, 143, 144, 1000, 4095, 4096, 65535,
		430570471424, (uint64(1) << 48) - 1}
	for _, v := range values {
		doz, ok := Convert(v, Binary, Dozenal)
		if !ok {
			t.Fatalf("binary to dozenal unsupported for %d", v)
		}
		back, ok := Convert(doz, Dozenal, Binary)
		if !ok {
			t.Fatalf("dozenal to binary unsupported for %#x", doz)
		}
		if back != v {
			t.Errorf("round trip of %d through dozenal = %d", v, back)
		}
	}
}

func TestConvertDecimalDozenalRoutesThroughBinary(t *testing.T) {
	for _, v := range []uint64{0, 5, 12, 999, 123456789} {
		direct, _ := Convert(v, Decimal, Dozenal)
		viaBinary, _ := Convert(v, Binary, Dozenal)
		if direct != viaBinary {
			t.Errorf("decimal to dozenal for %d = %#x, want binary route %#x", v, direct, viaBinary)
		}
		back, _ := Convert(direct, Dozenal, Decimal)
		if back != v {
			t.Errorf("dozenal to decimal round trip for %d = %d", v, back)
		}
	}
}

func TestConvertUnsupportedBases(t *testing.T) {
	if _, ok := Convert(42, Base(3), Binary); ok {
		t.Error("expected source base 3 to be unsupported")
	}
	if _, ok := Convert(42, Binary, Base(7)); ok {
		t.Error("expected target base 7 to be unsupported")
	}
}

func TestUnitStateSequence(t *testing.T) {
	unit := NewUnit(zap.NewNop())
	if !unit.Start(Job{Value: 144, Source: Binary, Target: Dozenal}) {
		t.Fatal("idle unit rejected start")
	}
	if unit.Start(Job{}) {
		t.Error("unit accepted a second start before running")
	}

	// IDLE latches the start, then LOAD, two CONVERT steps, four NORMALIZE
	// steps, and one OUTPUT step.
	want := []State{
		StateLoad,
		StateConvert, StateConvert,
		StateNormalize, StateNormalize, StateNormalize, StateNormalize,
		StateOutput,
		StateIdle,
	}
	for i, w := range want {
		unit.Step()
		if unit.State() != w {
			t.Fatalf("after step %d state = %s, want %s", i+1, unit.State(), w)
		}
	}

	res, valid := unit.Result()
	if !valid {
		t.Fatal("result not valid after OUTPUT")
	}
	if res != fixed.Price(0x100) {
		t.Errorf("result = %#x, want %#x", uint64(res), 0x100)
	}
	if unit.Err() {
		t.Error("error flag set for a supported conversion")
	}
}

func TestUnitStickyErrorFlag(t *testing.T) {
	unit := NewUnit(zap.NewNop())
	if _, err := unit.Run(Job{Value: 1, Source: Base(3), Target: Binary}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Run with bad base = %v, want ErrUnsupported", err)
	}
	if !unit.Err() {
		t.Fatal("error flag not sticky after unsupported conversion")
	}

	// A following good conversion completes but the flag stays set.
	res, err := unit.Run(Job{Value: 12, Source: Binary, Target: Dozenal})
	if err != nil {
		t.Fatalf("Run after error = %v", err)
	}
	if res != 0x10 {
		t.Errorf("result = %#x, want 0x10", uint64(res))
	}
	if !unit.Err() {
		t.Error("sticky error flag cleared without reset")
	}

	unit.Reset()
	if unit.Err() {
		t.Error("reset did not clear the error flag")
	}
	if unit.State() != StateIdle {
		t.Errorf("state after reset = %s, want IDLE", unit.State())
	}
}

func TestUnitRunRejectsWhileBusy(t *testing.T) {
	unit := NewUnit(zap.NewNop())
	if !unit.Start(Job{Value: 1, Source: Binary, Target: Dozenal}) {
		t.Fatal("idle unit rejected start")
	}
	unit.Step() // LOAD
	if _, err := unit.Run(Job{Value: 2, Source: Binary, Target: Dozenal}); err == nil {
		t.Error("Run accepted while a job is in flight")
	}
}
