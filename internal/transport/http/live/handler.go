package livehttp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"solsniper/internal/position"
	"solsniper/internal/pricefeed"
	"solsniper/internal/store"
	"solsniper/internal/store/model"
)

// Handler serves the live API from the position manager and the store.
type Handler struct {
	manager *position.Manager
	store   *store.Store
	feed    *pricefeed.Manager
}

func NewHandler(manager *position.Manager, st *store.Store, feed *pricefeed.Manager) *Handler {
	return &Handler{manager: manager, store: st, feed: feed}
}

func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	feedState := "disabled"
	if h.feed != nil {
		feedState = h.feed.State().String()
		if !h.feed.Healthy() {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{
		"feed":           feedState,
		"open_positions": len(h.manager.Snapshot()),
		"time":           time.Now().Unix(),
	})
}

type positionView struct {
	Mint       string `json:"mint"`
	Pool       string `json:"pool"`
	SizeTokens uint64 `json:"size_tokens"`
	Spent      uint64 `json:"spent_lamports"`
	Entry      string `json:"entry_price"`
	TakeProfit string `json:"take_profit"`
	StopLoss   string `json:"stop_loss"`
	State      string `json:"state"`
	Current    string `json:"current_price,omitempty"`
	OpenedAt   int64  `json:"opened_at"`
}

func (h *Handler) Positions(c *gin.Context) {
	open := h.manager.Snapshot()
	out := make([]positionView, 0, len(open))
	for _, p := range open {
		v := positionView{
			Mint:       p.Mint,
			Pool:       p.Pool.String(),
			SizeTokens: p.SizeTokens,
			Spent:      p.SpentLamports,
			Entry:      p.EntryPrice.String(),
			TakeProfit: p.TakeProfit.String(),
			StopLoss:   p.StopLoss.String(),
			State:      p.State().String(),
			OpenedAt:   p.OpenedAt.Unix(),
		}
		if h.feed != nil {
			if cur, ok := h.feed.CurrentPrice(p.Mint); ok {
				v.Current = cur.String()
			}
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (h *Handler) PnL(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	total, closed, err := h.store.SumRealizedPnL(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"realized_pnl_lamports": total,
		"closed_positions":      closed,
	})
}

func (h *Handler) Trades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	rows, err := h.store.Closed(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []model.PositionModel{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": rows})
}

// EquityChart renders cumulative realized pnl as a line chart.
func (h *Handler) EquityChart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	times, equity, err := h.store.EquityCurve(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Realized equity (lamports)"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	labels := make([]string, len(times))
	points := make([]opts.LineData, len(equity))
	for i := range times {
		labels[i] = time.Unix(times[i], 0).Format("01-02 15:04")
		points[i] = opts.LineData{Value: equity[i]}
	}
	line.SetXAxis(labels).AddSeries("equity", points)
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = line.Render(c.Writer)
}
