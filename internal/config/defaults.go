package config

// Defaults mirror the knobs the bot shipped with; anything set in the file
// wins because zero values are treated as "not set".
func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9985"
	}

	if c.Chain.ConfirmTimeout <= 0 {
		c.Chain.ConfirmTimeout = 30
	}

	if c.Trade.SlippageBps == 0 {
		c.Trade.SlippageBps = 300 // 3%
	}
	if c.Trade.PriorityMicroLam == 0 {
		c.Trade.PriorityMicroLam = 50_000
	}
	if c.Trade.PriorityUnitLimit == 0 {
		c.Trade.PriorityUnitLimit = 300_000
	}
	if c.Trade.SubmitRetries <= 0 {
		c.Trade.SubmitRetries = 3
	}

	if c.Risk.MinLiquidityUSD == 0 {
		c.Risk.MinLiquidityUSD = 300
	}
	if c.Risk.MinBuyers == 0 {
		c.Risk.MinBuyers = 1
	}
	if c.Risk.MinPoolAgeMs == 0 {
		c.Risk.MinPoolAgeMs = 150
	}
	if c.Risk.MaxPoolAgeMs == 0 {
		c.Risk.MaxPoolAgeMs = 5000
	}

	if c.Agent.TimeoutSeconds <= 0 {
		c.Agent.TimeoutSeconds = 60
	}
	if c.Agent.MaxRetries <= 0 {
		c.Agent.MaxRetries = 2
	}

	if c.Feed.PingSeconds <= 0 {
		c.Feed.PingSeconds = 30
	}
	if c.Feed.ReconnectSeconds <= 0 {
		c.Feed.ReconnectSeconds = 5
	}
	if c.Feed.MaxReconnects <= 0 {
		c.Feed.MaxReconnects = 10
	}
	if c.Feed.SubscribeInterval <= 0 {
		c.Feed.SubscribeInterval = 200
	}

	if c.Momentum.WindowSeconds <= 0 {
		c.Momentum.WindowSeconds = 10
	}
	if c.Momentum.MinBuyers <= 0 {
		c.Momentum.MinBuyers = 5
	}
	if c.Momentum.PollMinMs <= 0 {
		c.Momentum.PollMinMs = 500
	}
	if c.Momentum.PollMaxMs <= 0 {
		c.Momentum.PollMaxMs = 5000
	}

	if c.Store.PositionsPath == "" {
		c.Store.PositionsPath = "data/positions.db"
	}
	if c.Store.AuditPath == "" {
		c.Store.AuditPath = "data/audit.db"
	}
}
