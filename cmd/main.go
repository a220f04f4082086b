package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barangay/backend/internal/analysis"
	"barangay/backend/internal/api/handler"
	"barangay/backend/internal/auditlog"
	"barangay/backend/internal/auth"
	"barangay/backend/internal/config"
	"barangay/backend/internal/hub"
	"barangay/backend/internal/localization"
	"barangay/backend/internal/logging"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/notify"
	"barangay/backend/internal/storage"
	"barangay/backend/internal/telegram"
	"barangay/backend/internal/triage"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 15 * time.Second

// changeListener is implemented by stores that relay changes from other
// instances.
type changeListener interface {
	RunChangeListener(ctx context.Context) error
}

func setupStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return storage.NewMemoryStore(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, complaint changes stay in-process")
			_ = rdb.Close()
			rdb = nil
		}
	}

	s := storage.NewStorageService(db, rdb, logger)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	logger.Info().Bool("redis", rdb != nil).Msg("database connected, migrations complete")
	return s, nil
}

func setupAnalysis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (analysis.Analyzer, *analysis.Assistant) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set, complaints will not be analyzed")
		return analysis.Unavailable{}, &analysis.Assistant{}
	}
	client, err := analysis.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AnalysisTimeout, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Gemini client, complaints will not be analyzed")
		return analysis.Unavailable{}, &analysis.Assistant{}
	}
	return client, &analysis.Assistant{Client: client}
}

func setupTokens(cfg *config.Config, logger zerolog.Logger) (*auth.Tokens, error) {
	secret := cfg.JWTSecret
	if secret == "" && cfg.Environment == "development" {
		secret = uuid.New().String()
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	return auth.NewTokens(secret)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(logging.Options{ServiceName: "barangay-backend"})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "barangay-backend",
		Environment: cfg.Environment,
	})
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("backend stopped with error")
	}
	logger.Info().Msg("backend stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("storage", cfg.StorageDriver).Msg("starting barangay backend")

	// 1. Dependencies
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := setupTokens(cfg, logger)
	if err != nil {
		return err
	}
	analyzer, assistant := setupAnalysis(ctx, cfg, logger)

	l, err := localization.NewDefault()
	if err != nil {
		return err
	}

	var mirrors []notify.Mirror
	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" && cfg.TelegramAlertChatID != 0 {
		if botAPI, err = telegram.NewBotAPI(cfg.TelegramBotToken); err != nil {
			logger.Error().Err(err).Msg("failed to start Telegram bot, alerts stay in-app")
			botAPI = nil
		} else {
			mirrors = append(mirrors, telegram.NewAlertMirror(botAPI, cfg.TelegramAlertChatID))
		}
	}

	// 2. Triage pipeline and queue
	sink := auditlog.NewSink(store, logger, m)
	pipeline := triage.NewPipeline(store, analyzer, sink, logger, m, triage.Options{AnalysisTimeout: cfg.AnalysisTimeout})
	queue := triage.NewQueue()

	center := notify.NewCenter(cfg.NotificationLifetime, logger, m, mirrors...)
	watcher := notify.NewWatcher(notify.NewPolicy(l, localization.DefaultLanguage), center, logger)

	// 3. Realtime fan-out
	manager := hub.NewManager(logger, m)
	manager.Restrict(models.EventSystemLogs, func(r models.Role) bool { return r == models.RoleSuperAdmin })
	wireSelection(manager, queue)

	queue.Attach(store)
	defer queue.Detach()
	watcher.Attach(store)
	defer watcher.Detach()
	defer store.SubscribeComplaints(func(set []models.Complaint) {
		manager.Broadcast(models.EventComplaints, set)
	})()
	defer center.Subscribe(func(list []models.Notification) {
		manager.Broadcast(models.EventNotifications, list)
	})()
	defer sink.Subscribe(ctx, func(logs []models.SystemLog) {
		manager.Broadcast(models.EventSystemLogs, logs)
	})()

	// 4. HTTP
	router := handler.NewRouter(&handler.Handler{
		Pipeline:  pipeline,
		Queue:     queue,
		Store:     store,
		Audit:     sink,
		Center:    center,
		Hub:       manager,
		Tokens:    tokens,
		Assistant: assistant,
		Logger:    logger,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 5. Goroutines
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error {
		drainDeadLetters(gctx, sink, logger)
		return nil
	})
	if listener, ok := store.(changeListener); ok {
		g.Go(func() error { return listener.RunChangeListener(gctx) })
	}
	if botAPI != nil {
		bot := telegram.NewBotService(botAPI, queue, cfg.TelegramAlertChatID, logger)
		g.Go(func() error { return bot.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// In-flight analyses finish before alerts and mirrors are torn down.
	pipeline.Wait()
	center.Close()
	return err
}

// wireSelection keeps each dashboard informed of its own selected complaint.
func wireSelection(manager *hub.Manager, queue *triage.Queue) {
	queue.OnSelectionCleared = func(viewer string) {
		manager.SendTo(viewer, models.EventSelection, nil)
	}
	manager.OnMessage = func(in hub.Inbound) {
		switch in.Action {
		case hub.ActionSelect:
			if err := queue.Select(in.ClientID, in.ComplaintID); err != nil {
				manager.SendTo(in.ClientID, models.EventSelection, nil)
				return
			}
			if c, ok := queue.Selected(in.ClientID); ok {
				manager.SendTo(in.ClientID, models.EventSelection, c)
			}
		case hub.ActionDeselect:
			queue.Deselect(in.ClientID)
			manager.SendTo(in.ClientID, models.EventSelection, nil)
		}
	}
	manager.OnDisconnect = queue.Deselect
}

func drainDeadLetters(ctx context.Context, sink *auditlog.Sink, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-sink.DeadLetters():
			logger.Error().Err(f.Err).Time("failed_at", f.Timestamp).Str("entry", f.String()).Msg("audit record lost")
		}
	}
}
