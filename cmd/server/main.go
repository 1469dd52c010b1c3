package main

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-reservation/internal/config"
    "github.com/iliyamo/travel-reservation/internal/database"
    "github.com/iliyamo/travel-reservation/internal/gateway"
    "github.com/iliyamo/travel-reservation/internal/handler"
    "github.com/iliyamo/travel-reservation/internal/inventory"
    "github.com/iliyamo/travel-reservation/internal/queue"
    "github.com/iliyamo/travel-reservation/internal/repository"
    "github.com/iliyamo/travel-reservation/internal/router"
    queue_publisher "github.com/iliyamo/travel-reservation/internal/service"
    "github.com/iliyamo/travel-reservation/internal/session"
    "github.com/iliyamo/travel-reservation/internal/settlement"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()
    if err := database.EnsureSchema(db); err != nil {
        log.Fatalf("schema: %v", err)
    }

    // Redis backs the session store, the rate limiter and the response
    // cache.  Without it sessions fall back to process memory, which is
    // fine for a single instance but loses sessions on restart.
    rdb := config.NewRedisClient()

    sessionTTL := time.Duration(cfg.SessionTTLMin) * time.Minute
    var sessions session.Store
    if rdb != nil {
        sessions = session.NewRedisStore(rdb, sessionTTL)
    } else {
        log.Println("redis unavailable, using in-memory session store")
        sessions = session.NewMemoryStore(sessionTTL)
    }

    ledger := inventory.NewLedger(repository.NewInventoryStore(db))
    users := repository.NewUserRepo(db)
    resources := repository.NewResourceRepo(db)
    bookings := repository.NewBookingRepo(db)
    refunds := repository.NewRefundRepo(db)

    engine := settlement.NewEngine(settlement.Options{
        Currency:       cfg.Currency,
        CallbackBase:   cfg.CallbackBase,
        AdvancePercent: cfg.AdvancePercent,
        SettleGrace:    time.Duration(cfg.SettleGraceSec) * time.Second,
    }, sessions, ledger, resources, bookings, refunds,
        gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayStoreID, cfg.GatewayPass),
        queue_publisher.New())

    // Broker consumers run their own reconnect loops forever.
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("booking consumer stopped: %v", err)
        }
    }()
    go func() {
        if err := queue.StartRefundConsumer(); err != nil {
            log.Printf("refund consumer stopped: %v", err)
        }
    }()

    // Periodic maintenance: reclaim expired sessions and re-finalize
    // sessions stuck in Settling after a crash.
    go func() {
        ticker := time.NewTicker(time.Duration(cfg.SettleGraceSec) * time.Second)
        defer ticker.Stop()
        for range ticker.C {
            ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
            engine.SweepExpired(ctx)
            engine.RecoverStuck(ctx)
            cancel()
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.Register(e, router.Handlers{
        Auth:     handler.NewAuthHandler(cfg, users),
        Resource: handler.NewResourceHandler(resources, ledger),
        Checkout: handler.NewCheckoutHandler(engine),
        Payment:  handler.NewPaymentHandler(engine),
        Booking:  handler.NewBookingHandler(engine, bookings),
        Admin:    handler.NewAdminHandler(resources, refunds),
    }, cfg, rdb)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
