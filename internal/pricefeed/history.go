package pricefeed

import (
	"sync"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

const historyDepth = 64

// history keeps a short ring of recent prices per asset so volatility can
// be estimated from returns.
type history struct {
	mu     sync.Mutex
	prices map[string][]float64
}

func newHistory() *history {
	return &history{prices: map[string][]float64{}}
}

func (h *history) push(asset string, price decimal.Decimal) {
	f, _ := price.Float64()
	h.mu.Lock()
	defer h.mu.Unlock()
	ring := append(h.prices[asset], f)
	if len(ring) > historyDepth {
		ring = ring[len(ring)-historyDepth:]
	}
	h.prices[asset] = ring
}

// volatility returns the standard deviation of simple returns over the
// stored window. Below three samples there is no estimate.
func (h *history) volatility(asset string) float64 {
	h.mu.Lock()
	ring := h.prices[asset]
	prices := make([]float64, len(ring))
	copy(prices, ring)
	h.mu.Unlock()

	if len(prices) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	std := talib.StdDev(returns, len(returns), 1)
	return std[len(std)-1]
}
