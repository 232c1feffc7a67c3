package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/clinicore/medstock-backend/internal/modules/alert"
	"github.com/clinicore/medstock-backend/internal/modules/clinic"
	"github.com/clinicore/medstock-backend/internal/modules/report"
	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/clinicore/medstock-backend/internal/modules/supplier"
	"github.com/clinicore/medstock-backend/internal/modules/transfer"
	"github.com/clinicore/medstock-backend/internal/platform/events"
	"github.com/clinicore/medstock-backend/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on environment")
	}

	zlog, err := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), "medstock-backend")
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		zlog.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		zlog.Fatal("ping database", zap.Error(err))
	}
	zlog.Info("connected to database")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Domain event bus ────────────────────────────────────
	bus := events.NewMemoryBus()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		publisher, err := events.NewStreamPublisher(addr, zlog)
		if err != nil {
			zlog.Fatal("connect redis", zap.Error(err))
		}
		defer publisher.Close()
		publisher.Attach(bus)
		zlog.Info("redis event stream enabled", zap.String("addr", addr))
	}

	// ── Phase 1: Clinics & Suppliers ────────────────────────
	clinicRepo := clinic.NewPostgresRepository(db)
	clinicService := clinic.NewService(clinicRepo)
	clinic.NewHandler(clinicService).RegisterRoutes(router)

	supplierRepo := supplier.NewPostgresRepository(db)
	supplierService := supplier.NewService(supplierRepo)
	supplier.NewHandler(supplierService).RegisterRoutes(router)

	// ── Phase 2: Stock Ledger ───────────────────────────────
	stockRepo := stock.NewPostgresRepository(db)
	stockService := stock.NewService(stockRepo, bus, zlog)
	stock.NewHandler(stockService).RegisterRoutes(router)

	// ── Phase 3: Alert Engine ───────────────────────────────
	alertRepo := alert.NewPostgresRepository(db)
	alertService := alert.NewService(alertRepo, stockRepo, bus, zlog)
	alert.NewHandler(alertService).RegisterRoutes(router)

	bus.Subscribe(events.TopicStockQuantityChanged, func(ctx context.Context, e events.Event) {
		changed, ok := e.Payload.(events.StockQuantityChanged)
		if !ok {
			return
		}
		if err := alertService.Reconcile(ctx, changed.StockItemID.String()); err != nil {
			zlog.Error("reconcile after quantity change",
				zap.String("stock_item_id", changed.StockItemID.String()), zap.Error(err))
		}
	})
	bus.Subscribe(events.TopicRequestTransitioned, alertService.HandleRequestEvent)

	sweepInterval := 60 * time.Second
	if v := os.Getenv("ALERT_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sweepInterval = d
		}
	}
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go alertService.RunSweeper(sweepCtx, sweepInterval)

	// ── Phase 4: Transfer Workflow ──────────────────────────
	transferRepo := transfer.NewPostgresRepository(db)
	transferService := transfer.NewService(transferRepo, stockRepo, bus, zlog)
	transfer.NewHandler(transferService).RegisterRoutes(router)

	// ── Phase 5: Reports ────────────────────────────────────
	reportRepo := report.NewPostgresRepository(db)
	reportService := report.NewService(reportRepo)
	report.NewHandler(reportService).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	zlog.Info("medstock API server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
