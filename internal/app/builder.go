package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"solsniper/internal/agent"
	"solsniper/internal/buyers"
	"solsniper/internal/chain"
	"solsniper/internal/config"
	"solsniper/internal/detector"
	"solsniper/internal/engine"
	"solsniper/internal/gateway/notifier"
	"solsniper/internal/logger"
	"solsniper/internal/position"
	"solsniper/internal/pricefeed"
	"solsniper/internal/pumpswap"
	"solsniper/internal/risk"
	"solsniper/internal/store"
	"solsniper/internal/store/audit"
	livehttp "solsniper/internal/transport/http/live"
	"solsniper/internal/wallet"
)

// AppBuilder assembles the component graph from configuration. Each
// build step can be overridden in tests.
type AppBuilder struct {
	cfg *config.Config

	chainFn    func(config.ChainConfig) chain.Client
	notifierFn func(config.NotifyConfig) notifier.Notifier
	screenerFn func(config.AgentConfig) engine.Screener
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		chainFn:    buildChainClient,
		notifierFn: buildNotifier,
		screenerFn: buildScreener,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithChainClient overrides the RPC boundary, used by tests.
func WithChainClient(c chain.Client) AppBuilderOption {
	return func(b *AppBuilder) {
		b.chainFn = func(config.ChainConfig) chain.Client { return c }
	}
}

func WithScreener(s engine.Screener) AppBuilderOption {
	return func(b *AppBuilder) {
		b.screenerFn = func(config.AgentConfig) engine.Screener { return s }
	}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	trader, err := wallet.FromBase58(cfg.Chain.TraderKey)
	if err != nil {
		return nil, fmt.Errorf("trader key: %w", err)
	}
	chainClient := b.chainFn(cfg.Chain)

	resolver, err := buildResolver(cfg.Chain)
	if err != nil {
		return nil, err
	}
	swapBuilder := pumpswap.NewBuilder(resolver, chainClient)
	executor := engine.NewExecutor(chainClient, trader, swapBuilder, cfg.Trade)

	denylist, err := risk.NewDenylist(cfg.Risk.DenylistPath)
	if err != nil {
		return nil, fmt.Errorf("denylist: %w", err)
	}
	gate := risk.NewGate(cfg.Risk, denylist)

	positionStore, err := store.Open(cfg.Store.PositionsPath)
	if err != nil {
		return nil, fmt.Errorf("position store: %w", err)
	}
	auditLog, err := audit.Open(cfg.Store.AuditPath)
	if err != nil {
		positionStore.Close()
		return nil, fmt.Errorf("audit log: %w", err)
	}

	feed := pricefeed.NewManager(cfg.Feed)
	counter := buyers.NewCounter(2 * time.Duration(cfg.Momentum.WindowSeconds) * time.Second)

	manager := position.NewManager(
		cfg.Momentum,
		executor,
		positionStore,
		b.notifierFn(cfg.Notify),
		counter,
		feed.Volatility,
	)
	manager.SetCloseHook(feed.Unsubscribe)

	pipeline := engine.NewPipeline(gate, b.screenerFn(cfg.Agent), executor, &feedOpener{manager: manager, feed: feed}, auditLog, cfg.Trade)

	inspector := inspectorFor(chainClient)
	if inspector == nil {
		positionStore.Close()
		auditLog.Close()
		return nil, fmt.Errorf("chain client does not support transaction inspection")
	}
	det := detector.New(
		cfg.Chain.WSURL,
		resolver.AMMProgram,
		inspector,
		chainClient,
		counter,
		feed.CurrentPrice,
		func(c risk.Candidate) {
			procCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := pipeline.Process(procCtx, c); err != nil {
				logger.Infof("[APP] candidate %s dropped: %v", c.Mint, err)
			}
		},
		cfg.Risk.MinPoolAgeMs,
		time.Duration(cfg.Momentum.WindowSeconds)*time.Second,
	)

	httpServer := livehttp.NewServer(cfg.App.HTTPAddr, livehttp.NewHandler(manager, positionStore, feed))

	return &App{
		cfg:      cfg,
		feed:     feed,
		detector: det,
		manager:  manager,
		store:    positionStore,
		audit:    auditLog,
		denylist: denylist,
		httpSrv:  httpServer,
	}, nil
}

func buildChainClient(cfg config.ChainConfig) chain.Client {
	return chain.NewRPCClient(cfg.RPCURL)
}

func buildResolver(cfg config.ChainConfig) (*pumpswap.Resolver, error) {
	resolver := pumpswap.NewResolver()
	if cfg.AMMProgram != "" {
		p, err := solana.PublicKeyFromBase58(cfg.AMMProgram)
		if err != nil {
			return nil, fmt.Errorf("amm program override: %w", err)
		}
		resolver.AMMProgram = p
	}
	if cfg.FeeProgram != "" {
		p, err := solana.PublicKeyFromBase58(cfg.FeeProgram)
		if err != nil {
			return nil, fmt.Errorf("fee program override: %w", err)
		}
		resolver.FeeProgram = p
	}
	return resolver, nil
}

func buildNotifier(cfg config.NotifyConfig) notifier.Notifier {
	if cfg.Telegram.Enabled {
		return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	return notifier.Noop{}
}

func buildScreener(cfg config.AgentConfig) engine.Screener {
	return agent.NewChatClient(cfg)
}

func inspectorFor(c chain.Client) detector.Inspector {
	if i, ok := c.(detector.Inspector); ok {
		return i
	}
	return nil
}

// feedOpener opens the position and subscribes its mint to the feed so
// tick-driven exits start immediately.
type feedOpener struct {
	manager *position.Manager
	feed    *pricefeed.Manager
}

func (o *feedOpener) Open(ctx context.Context, req engine.OpenRequest) error {
	if err := o.manager.Open(ctx, req); err != nil {
		return err
	}
	return o.feed.Subscribe(req.Mint, o.manager.OnPriceUpdate)
}
