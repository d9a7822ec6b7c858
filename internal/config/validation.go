package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	var problems []string

	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		problems = append(problems, "chain.rpc_url is required")
	}
	if strings.TrimSpace(c.Chain.WSURL) == "" {
		problems = append(problems, "chain.ws_url is required")
	}
	if strings.TrimSpace(c.Chain.TraderKey) == "" {
		problems = append(problems, "chain.trader_key is required")
	}
	if strings.TrimSpace(c.Feed.URL) == "" {
		problems = append(problems, "feed.url is required")
	}
	if c.Trade.MaxAmountLamports == 0 {
		problems = append(problems, "trade.max_amount_lamports must be > 0")
	}
	if c.Trade.SlippageBps > 10_000 {
		problems = append(problems, "trade.slippage_bps must be <= 10000")
	}
	if c.Risk.MinPoolAgeMs >= c.Risk.MaxPoolAgeMs {
		problems = append(problems, "risk.min_pool_age_ms must be < risk.max_pool_age_ms")
	}
	if c.Momentum.PollMinMs > c.Momentum.PollMaxMs {
		problems = append(problems, "momentum.poll_min_ms must be <= momentum.poll_max_ms")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "" {
			problems = append(problems, "notify.telegram requires bot_token and chat_id when enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
