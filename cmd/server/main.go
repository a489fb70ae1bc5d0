package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/joho/godotenv"
    redis "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "autovault/internal/adapters/gateway"
    httpadapter "autovault/internal/adapters/http"
    pg "autovault/internal/adapters/postgres"
    redisstore "autovault/internal/adapters/redis"
    "autovault/internal/config"
    "autovault/internal/logging"
    "autovault/internal/ports"
    feesvc "autovault/internal/services/fees"
    historysvc "autovault/internal/services/history"
    jobsvc "autovault/internal/services/jobs"
    validationsvc "autovault/internal/services/validation"
    "autovault/internal/workers/statusrelay"
)

func main() {
    _ = godotenv.Load()

    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }

    logger, err := logging.New(cfg.Env)
    if err != nil {
        log.Fatalf("logger error: %v", err)
    }
    defer func() { _ = logger.Sync() }()

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    var store ports.HistoryStore
    switch cfg.HistoryBackend {
    case "postgres":
        db, err := pg.Connect(ctx, cfg.DatabaseURL)
        if err != nil {
            logger.Fatal("db connect", zap.Error(err))
        }
        defer db.Close()
        store = db
    case "redis":
        rs := redisstore.New(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
        if err := rs.Ping(ctx); err != nil {
            logger.Fatal("redis connect", zap.Error(err))
        }
        store = rs
    }

    history := historysvc.New(store, cfg.HistoryLimit, logger)
    validator := validationsvc.New()

    provider := gateway.New(cfg.GatewayURL, logger)
    if err := provider.Healthz(ctx); err != nil {
        // The gateway may still be starting; jobs fail cleanly until it is up.
        logger.Warn("gateway not ready", zap.Error(err))
    }
    ledger := gateway.NewLedger(cfg.LedgerURL)
    fees := feesvc.New(ledger, logger)
    // Outbound ledger transactions go through the fee-adapting sender.
    ledger.UseSender(feesvc.NewAdaptingSender(ledger, fees))

    jobs := jobsvc.New(provider, provider, fees, history, jobsvc.Config{
        ExecutorAddress:    cfg.ExecutorAddress,
        WorkerpoolAddress:  cfg.WorkerpoolAddress,
        Account:            cfg.Account,
        AccessCount:        cfg.AccessCount,
        AppMaxPrice:        cfg.AppMaxPrice,
        WorkerpoolMaxPrice: cfg.WorkerpoolMaxPrice,
        OutputPath:         cfg.OutputPath,
        RequiredStake:      cfg.RequiredStake(),
        PipelineTimeout:    cfg.PipelineTimeout,
    }, logger)

    relay := statusrelay.New(64, logger)
    go relay.Run(ctx, jobs.Events())

    srv := httpadapter.New(validator, jobs, history, relay, logger)
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())

    errCh := make(chan error, 1)
    go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
    logger.Info("listening", zap.String("addr", cfg.ListenAddr))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        logger.Info("shutting down", zap.String("signal", sig.String()))
        cancel()
        time.Sleep(300 * time.Millisecond)
    case err := <-errCh:
        logger.Fatal("server error", zap.Error(err))
    }
}
