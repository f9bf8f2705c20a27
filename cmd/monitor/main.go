package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradewatch/internal/config"
	"tradewatch/internal/consistency"
	"tradewatch/internal/control"
	cronrunner "tradewatch/internal/cron"
	"tradewatch/internal/db"
	"tradewatch/internal/engine"
	"tradewatch/internal/handler"
	"tradewatch/internal/logger"
	"tradewatch/internal/models"
	"tradewatch/internal/probe"
	"tradewatch/internal/repository"
	gormrepository "tradewatch/internal/repository/gorm"
	"tradewatch/internal/synth"
)

func main() {
	cfgPath := os.Getenv("TW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// The preferences store is convenience data; a broken sqlite file must
	// not keep the dashboard down.
	var store repository.Repository
	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Warn("prefs db open failed, preferences disabled", zap.Error(err))
	} else {
		defer db.Close(dbConn)
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Warn("prefs db migrate failed, preferences disabled", zap.Error(err))
		} else {
			store = gormrepository.New(dbConn.Gorm)
		}
	}

	prober := &probe.Prober{
		HTTP:          &http.Client{Timeout: cfg.Poll.ProbeTimeout},
		Logger:        logger,
		SlowThreshold: cfg.Poll.SlowThreshold,
	}
	eng := engine.New(engine.Options{
		Endpoints: engine.BuildEndpoints(cfg.Endpoints, cfg.Poll),
		Injected:  engine.InjectedFromConfig(cfg.Injected),
		Interval:  cfg.Poll.Interval,
		SubBuf:    cfg.Poll.SubscriberBuf,
		Prober:    prober,
		Synth:     synth.NewFromConfig(cfg.Synthesis),
		Checker:   consistency.NewFromConfig(cfg.Consistency, logger),
		Logger:    logger,
	})
	controller := control.NewFromConfig(cfg.Control, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn, Engine: eng}
	healthHandler.Register(router)
	dashHandler := &handler.DashboardHandler{Engine: eng, Logger: logger}
	dashHandler.Register(router)
	streamHandler := &handler.StreamHandler{Engine: eng, Logger: logger}
	streamHandler.Register(router)
	controlHandler := &handler.ControlHandler{Control: controller, Logger: logger}
	controlHandler.Register(router)
	if store != nil {
		prefsHandler := &handler.PrefsHandler{
			Repo:        store,
			Logger:      logger,
			SearchLimit: cfg.Prefs.RecentSearchLimit,
		}
		prefsHandler.Register(router)
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("poll scheduler stopped", zap.Error(err))
		}
	}()

	if cfg.Cron.Enabled && store != nil {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("prune_recent_searches", cfg.Cron.PrunePrefs, func(ctx context.Context) {
			n, err := store.PruneRecentSearches(ctx, cfg.Prefs.RecentSearchLimit)
			if err != nil {
				logger.Warn("recent search prune failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("pruned recent searches", zap.Int64("removed", n))
			}
		})
		if err != nil {
			logger.Warn("cron register prune failed", zap.Error(err))
		}
		_, err = cronRunner.Add("save_last_snapshot", cfg.Cron.SnapshotSave, func(ctx context.Context) {
			snap := eng.Latest()
			if snap == nil {
				return
			}
			raw, err := json.Marshal(snap)
			if err != nil {
				return
			}
			pref := &models.Preference{
				Key:       "last_known_snapshot",
				Value:     datatypes.JSON(raw),
				UpdatedAt: time.Now().UTC(),
			}
			if err := store.UpsertPreference(ctx, pref); err != nil {
				logger.Warn("snapshot save failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register snapshot save failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
