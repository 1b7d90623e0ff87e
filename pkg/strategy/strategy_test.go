package strategy

import "testing"

func TestNames(t *testing.T) {
	cases := []struct {
		id   uint8
		want string
	}{
		{MarketMaking, "market_making"},
		{MeanReversion, "mean_reversion"},
		{Momentum, "momentum"},
		{Arbitrage, "arbitrage"},
		{200, "unknown"},
	}
	for _, tc := range cases {
		if got := Name(tc.id); got != tc.want {
			t.Errorf("Name(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
	if Known(200) {
		t.Error("Known(200) = true, want false")
	}
	if !Known(MarketMaking) {
		t.Error("Known(MarketMaking) = false, want true")
	}
}
