// Command cardledgerd serves the lending engine over HTTP: JSON endpoints
// for lend/borrow/repay/withdraw and position/apy reads, a websocket event
// stream, Prometheus metrics, and a background loan-touch job.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cardledger/core/events"
	"cardledger/native/card"
	"cardledger/native/common"
	"cardledger/native/lending"
	"cardledger/native/pot"
	"cardledger/native/rewards"
	"cardledger/observability/logging"
	"cardledger/observability/metrics"
	obsotel "cardledger/observability/otel"
	"cardledger/reporting"
	"cardledger/storage"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
	"nhooyr.io/websocket"
)

func main() {
	configPath := flag.String("config", "./cardledgerd.yaml", "path to the daemon's YAML configuration")
	flag.Parse()

	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger := logging.SetupWriter("cardledgerd", cfg.Environment, &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := obsotel.Init(ctx, obsotel.Config{
			ServiceName: "cardledgerd",
			Environment: cfg.Environment,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			logger.Warn("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	lendingCfg, err := loadLendingConfig(cfg.LendingConfigPath)
	if err != nil {
		panic(err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	state := lending.NewKVState(db)
	cards := card.NewStore(db)
	potAcc := pot.NewAccumulator(db)
	minter := rewards.NewMinter(db)
	quotas := newQuotaStore(db)

	engineCfg := lending.FromLendingConfig(lendingCfg)
	engine := lending.NewEngine(engineCfg)
	engine.SetState(state)
	engine.SetCards(cards)
	engine.SetPot(potAcc)
	engine.SetRewards(minter)
	engine.SetClock(wallClock{})
	engine.SetPauses(noopPauses{})
	engine.SetMetrics(metrics.Lending())

	bus := newHub()
	engine.SetEvents(bus)

	reportingDB, err := openReportingDB(cfg.ReportingDriver, cfg.ReportingDSN)
	if err != nil {
		logger.Error("reporting db unavailable, running without audit read-model", "error", err)
	} else {
		sink := reporting.NewSink(reportingDB, nil)
		engine.SetEvents(events.MultiEmitter{bus, sink})
	}

	srv := &server{engine: engine, state: state, config: engineCfg}

	quota := common.Quota{
		MaxRequestsPerMin: cfg.QuotaMaxRequestsPerMin,
		MaxNHBPerEpoch:    cfg.QuotaMaxPowerPerEpoch,
		EpochSeconds:      cfg.QuotaEpochSeconds,
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(otelhttp.NewMiddleware("cardledgerd"))

	router.Post("/v1/auth/login", loginHandler(cfg.JWTSecret))

	router.Route("/v1", func(r chi.Router) {
		r.Use(requireAuth(cfg.JWTSecret))
		r.Use(rateLimitMiddleware(cfg.RateLimitPerSec, cfg.RateLimitBurst))
		r.Use(quotaMiddleware(quotas, quota, cfg.QuotaEpochSeconds))

		r.Post("/lend", srv.handleLend)
		r.Post("/borrow", srv.handleBorrow)
		r.Post("/repay", srv.handleRepay)
		r.Post("/withdraw", srv.handleWithdraw)
		r.Get("/positions/{owner}/{category}/{tokenID}", srv.handlePosition)
		r.Get("/apy", srv.handleAPY)
	})

	router.Handle("/metrics", metrics.Handler())
	router.Get("/v1/events", eventsWebsocketHandler(bus))

	touchInterval := time.Duration(cfg.TouchIntervalSeconds) * time.Second
	if touchInterval <= 0 {
		touchInterval = time.Minute
	}
	go backgroundTicker(ctx, touchInterval, func() {
		touched, liquidated, err := engine.TouchAll()
		if err != nil {
			logger.Error("touch_loans failed", "error", err)
			return
		}
		if touched > 0 {
			logger.Info("touch_loans", "touched", touched, "liquidated", liquidated)
		}
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("cardledgerd listening", "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server exited", "error", err)
	}
}

func rateLimitMiddleware(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newPerCallerLimiters(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerFromContext(r.Context())
			if !limiters.allow(caller) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func quotaMiddleware(store *quotaStore, q common.Quota, epochSeconds uint32) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerFromContext(r.Context())
			epoch := currentEpoch(epochSeconds)
			if _, err := common.Apply(store, "cardledgerd.http", epoch, caller[:], q, 1, 0); err != nil {
				http.Error(w, err.Error(), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentEpoch(epochSeconds uint32) uint64 {
	if epochSeconds == 0 {
		epochSeconds = 3600
	}
	return uint64(time.Now().Unix()) / uint64(epochSeconds)
}

func eventsWebsocketHandler(bus *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		ch := bus.subscribe()
		defer bus.unsubscribe(ch)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case msg, ok := <-ch:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			}
		}
	}
}
