package config

// Config is the top-level configuration for the sniper daemon.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Chain    ChainConfig    `yaml:"chain"`
	Trade    TradeConfig    `yaml:"trade"`
	Risk     RiskConfig     `yaml:"risk"`
	Agent    AgentConfig    `yaml:"agent"`
	Feed     FeedConfig     `yaml:"feed"`
	Momentum MomentumConfig `yaml:"momentum"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
	HTTPAddr string `yaml:"http_addr"`
}

type ChainConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	WSURL          string `yaml:"ws_url"`
	TraderKey      string `yaml:"trader_key"`       // base58 secret, or env ref via ${VAR}
	AMMProgram     string `yaml:"amm_program"`      // override for tests only
	FeeProgram     string `yaml:"fee_program"`      // override for tests only
	ConfirmTimeout int    `yaml:"confirm_timeout_seconds"`
}

type TradeConfig struct {
	MaxAmountLamports  uint64 `yaml:"max_amount_lamports"` // hard capital ceiling per trade
	SlippageBps        uint16 `yaml:"slippage_bps"`
	Prioritize         bool   `yaml:"prioritize"`
	PriorityMicroLam   uint64 `yaml:"priority_microlamports"`
	PriorityUnitLimit  uint32 `yaml:"priority_unit_limit"`
	SkipPreflight      bool   `yaml:"skip_preflight"`
	SubmitRetries      int    `yaml:"submit_retries"`
}

type RiskConfig struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinBuyers       int     `yaml:"min_buyers"`
	MinPoolAgeMs    int64   `yaml:"min_pool_age_ms"`
	MaxPoolAgeMs    int64   `yaml:"max_pool_age_ms"`
	DenylistPath    string  `yaml:"denylist_path"`
}

type AgentConfig struct {
	APIURL         string `yaml:"api_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type FeedConfig struct {
	URL               string `yaml:"url"`
	PingSeconds       int    `yaml:"ping_seconds"`
	ReconnectSeconds  int    `yaml:"reconnect_seconds"`
	MaxReconnects     int    `yaml:"max_reconnects"`
	SubscribeInterval int    `yaml:"subscribe_interval_ms"`
}

type MomentumConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	MinBuyers     int `yaml:"min_buyers"`
	PollMinMs     int `yaml:"poll_min_ms"`
	PollMaxMs     int `yaml:"poll_max_ms"`
}

type StoreConfig struct {
	PositionsPath string `yaml:"positions_path"`
	AuditPath     string `yaml:"audit_path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}
