// Package scheduler maps observed price volatility onto a polling cadence:
// the noisier an asset trades, the more often its checks run.
package scheduler

import (
	"time"
)

// VolatilityFunc returns a recent volatility estimate for an asset, in
// relative terms (stddev of returns). Zero means no data yet.
type VolatilityFunc func(asset string) float64

// Adaptive computes poll intervals bounded by [Min, Max]. A volatility at
// or above Pivot pins the interval to Min.
type Adaptive struct {
	Min        time.Duration
	Max        time.Duration
	Pivot      float64
	Volatility VolatilityFunc
}

func New(min, max time.Duration, vol VolatilityFunc) *Adaptive {
	if max < min {
		max = min
	}
	return &Adaptive{Min: min, Max: max, Pivot: 0.05, Volatility: vol}
}

// Next returns how long to wait before the asset's next check.
func (a *Adaptive) Next(asset string) time.Duration {
	vol := 0.0
	if a.Volatility != nil {
		vol = a.Volatility(asset)
	}
	if vol <= 0 {
		return a.Max
	}
	frac := vol / a.Pivot
	if frac > 1 {
		frac = 1
	}
	span := float64(a.Max - a.Min)
	return a.Max - time.Duration(frac*span)
}
