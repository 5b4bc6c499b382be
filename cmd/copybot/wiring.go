package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"polycopy/internal/broker/paper"
	"polycopy/internal/chain"
	"polycopy/internal/config"
	"polycopy/internal/copier"
	"polycopy/internal/domain"
	"polycopy/internal/executor"
	"polycopy/internal/observability"
	"polycopy/internal/polymarket"
	"polycopy/internal/source"
	"polycopy/internal/storage"
	chstore "polycopy/internal/storage/clickhouse"
	"polycopy/internal/storage/memory"
	"polycopy/internal/storage/migrations"
	pgstore "polycopy/internal/storage/postgres"
	"polycopy/internal/strategy"
	"polycopy/internal/valuation"
)

// minOperatorBalanceUSD is the operator balance below which startup warns.
const minOperatorBalanceUSD = 5.0

type runner interface {
	Run(ctx context.Context) error
}

// bot holds the wired components.
type bot struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics

	valuator *valuation.Valuator
	signer   *polymarket.SidecarSigner // nil in paper mode
	executor *executor.Executor
	engines  []*strategy.Engine
	router   *copier.Router
	source   runner
	started  time.Time

	closers []func()
}

// stores holds the audit sinks.
type stores struct {
	decisions []storage.DecisionWriter
	orders    storage.OrderWriter
	closers   []func()
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bot, error) {
	b := &bot{cfg: cfg, logger: logger, started: time.Now()}

	b.registry = prometheus.NewRegistry()
	b.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	b.metrics = observability.NewMetrics(cfg.Metrics.Namespace, b.registry)

	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, st.closers...)

	apiOpts := []polymarket.ClientOption{
		polymarket.WithTimeout(cfg.API.Timeout),
		polymarket.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		polymarket.WithLogger(logger),
	}
	gamma := polymarket.NewGammaClient(polymarket.NewClient(cfg.API.GammaURL, apiOpts...), polymarket.DefaultMarketCacheTTL)
	data := polymarket.NewDataClient(polymarket.NewClient(cfg.API.DataURL, apiOpts...))

	rpc := chain.NewHTTPClient(cfg.Wallet.RPCURL,
		chain.WithTimeout(cfg.API.Timeout),
		chain.WithMaxRetries(cfg.API.MaxRetries),
	)
	b.valuator = valuation.New(rpc, data, valuation.Options{
		USDCContract:           cfg.Wallet.USDCContract,
		USDCDecimals:           cfg.Wallet.USDCDecimals,
		FallbackPortfolioValue: cfg.Valuation.FallbackPortfolioValue,
		MinPortfolioValue:      cfg.Valuation.MinPortfolioValue,
		Logger:                 logger,
	})

	b.executor = b.newExecutor(apiOpts)
	if err := b.executor.Init(ctx); err != nil {
		logger.Warn("continuing without trading", "err", err)
	}
	b.metrics.SetTradingEnabled(b.executor.TradingEnabled())

	processors := make([]*copier.Processor, 0, len(cfg.Strategies))
	for i := range cfg.Strategies {
		sc := cfg.Strategies[i].Domain()
		engine, err := strategy.FromConfig(sc, gamma, b.valuator, strategy.Options{
			SweepInterval:     cfg.Engine.SweepInterval,
			Retention:         cfg.Engine.Retention,
			DedupRetention:    cfg.Engine.DedupRetention,
			DedupCapacity:     cfg.Engine.DedupCapacity,
			MinNetExposureUSD: cfg.Engine.MinNetExposureUSD,
			LookupTimeout:     cfg.Engine.LookupTimeout,
			Logger:            logger,
		})
		if err != nil {
			b.close()
			return nil, fmt.Errorf("strategy %d: %w", i, err)
		}
		b.engines = append(b.engines, engine)
		processors = append(processors, copier.NewProcessor(engine, b.executor, copier.Options{
			Decisions: st.decisions,
			Orders:    st.orders,
			Metrics:   b.metrics,
			Exposure:  b.executor.Exposure(),
			Logger:    logger,
		}))
	}

	b.router, err = copier.NewRouter(logger, processors...)
	if err != nil {
		b.close()
		return nil, err
	}
	b.source = b.newSource(data)
	return b, nil
}

// newExecutor wires the live CLOB broker with the signing sidecar, or the
// paper broker backed by real order books.
func (b *bot) newExecutor(apiOpts []polymarket.ClientOption) *executor.Executor {
	cfg := b.cfg
	opts := executor.Options{
		WalletAddress:    cfg.Wallet.Address,
		GlobalAllocation: cfg.Executor.GlobalAllocation,
		MinShares:        cfg.Executor.MinShares,
		DefaultTickSize:  cfg.Executor.DefaultTickSize,
		OrderTimeout:     cfg.Executor.OrderTimeout,
		LookupTimeout:    cfg.Engine.LookupTimeout,
		Logger:           b.logger,
	}

	if cfg.Executor.Mode == config.ExecutorLive {
		b.signer = polymarket.NewSidecarSigner(
			polymarket.NewClient(cfg.Signer.SidecarURL, polymarket.WithTimeout(cfg.Signer.Timeout), polymarket.WithLogger(b.logger)),
			cfg.Wallet.Address,
		)
		clob := polymarket.NewCLOBClient(polymarket.NewClient(cfg.API.CLOBURL, apiOpts...), b.signer)
		return executor.New(clob, clob, b.valuator, opts)
	}

	books := polymarket.NewCLOBClient(polymarket.NewClient(cfg.API.CLOBURL, apiOpts...), nil)
	broker := paper.New(books)
	b.logger.Info("paper trading enabled", "balance_usd", cfg.Executor.PaperBalance)
	return executor.New(broker, broker, valuation.Static(cfg.Executor.PaperBalance), opts)
}

func (b *bot) newSource(data *polymarket.DataClient) runner {
	cfg := b.cfg.Source
	targets := b.router.Targets()

	if cfg.Mode == config.SourceStream {
		sc := source.DefaultStreamConfig()
		sc.URL = b.cfg.API.WSURL
		sc.SeenCapacity = cfg.SeenCapacity
		sc.Logger = b.logger
		return source.NewStream(targets, b.router.Route, sc)
	}

	return source.NewPoller(&instrumentedFetcher{data: data, metrics: b.metrics}, targets, b.router.Route, source.PollerConfig{
		Interval:     cfg.PollInterval,
		TradeLimit:   cfg.TradeLimit,
		MaxBackoff:   cfg.MaxBackoff,
		SeenCapacity: cfg.SeenCapacity,
		Logger:       b.logger,
	})
}

func openStores(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Backend {
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.decisions = append(st.decisions, pgstore.NewDecisionStore(pool))
		st.orders = pgstore.NewOrderStore(pool)
		st.closers = append(st.closers, pool.Close)
		logger.Info("audit records stored in postgres", "migrations_applied", applied)
	default:
		st.decisions = append(st.decisions, memory.NewDecisionStore())
		st.orders = memory.NewOrderStore()
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			for _, c := range st.closers {
				c()
			}
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		st.decisions = append(st.decisions, chstore.NewDecisionEventStore(conn))
		st.closers = append(st.closers, func() { conn.Close() })
		logger.Info("decision events streamed to clickhouse")
	}
	return st, nil
}

// healthCheck logs the operator and target balances. It never fails.
func (b *bot) healthCheck(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Engine.LookupTimeout)
	defer cancel()

	if b.signer != nil {
		if err := b.signer.Health(ctx); err != nil {
			b.logger.Warn("signing sidecar unreachable", "url", b.cfg.Signer.SidecarURL, "err", err)
		}
	}

	if b.cfg.Wallet.Address != "" {
		balance := b.valuator.Balance(ctx, b.cfg.Wallet.Address)
		if balance < minOperatorBalanceUSD {
			b.logger.Warn("operator balance is low", "address", b.cfg.Wallet.Address, "balance_usd", balance)
		} else {
			b.logger.Info("operator balance", "address", b.cfg.Wallet.Address, "balance_usd", balance)
		}
	}

	for _, e := range b.engines {
		sc := e.Config()
		b.logger.Info("tracking trader",
			"trader", sc.Label(),
			"address", sc.TraderAddress,
			"strategy", sc.Type,
			"balance_usd", b.valuator.Balance(ctx, sc.TraderAddress),
		)
	}
}

func (b *bot) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler(b.registry))
	mux.HandleFunc("/status", b.handleStatus)
	return mux
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string             `json:"status"`
	Uptime          string             `json:"uptime"`
	TradingEnabled  bool               `json:"trading_enabled"`
	Mode            string             `json:"mode"`
	SessionExposure float64            `json:"session_exposure_usd"`
	PerMarket       map[string]float64 `json:"per_market_usd"`
	Traders         []traderStatus     `json:"traders"`
}

type traderStatus struct {
	Trader          string `json:"trader"`
	TrackedMarkets  int    `json:"tracked_markets"`
	LatchedMarkets  int    `json:"latched_markets"`
	InFlightMarkets int    `json:"in_flight_markets"`
	SeenTrades      int    `json:"seen_trades"`
}

func (b *bot) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := b.executor.Exposure().Snapshot()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(b.started).Round(time.Second).String(),
		TradingEnabled:  b.executor.TradingEnabled(),
		Mode:            b.cfg.Executor.Mode,
		SessionExposure: snap.SessionTotalUSD,
		PerMarket:       snap.PerMarketUSD,
	}
	for _, e := range b.engines {
		sc := e.Config()
		stats := e.State().Stats()
		resp.Traders = append(resp.Traders, traderStatus{
			Trader:          sc.Label(),
			TrackedMarkets:  stats.TrackedMarkets,
			LatchedMarkets:  stats.Latched,
			InFlightMarkets: stats.InFlight,
			SeenTrades:      stats.SeenHashes,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (b *bot) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// instrumentedFetcher counts Data-API failures.
type instrumentedFetcher struct {
	data    *polymarket.DataClient
	metrics *observability.Metrics
}

func (f *instrumentedFetcher) Trades(ctx context.Context, user string, limit int) ([]domain.TradeEvent, error) {
	trades, err := f.data.Trades(ctx, user, limit)
	if err != nil && ctx.Err() == nil {
		f.metrics.RecordUpstreamError("data_api")
	}
	return trades, err
}
