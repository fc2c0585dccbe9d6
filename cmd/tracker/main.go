package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rastreador-precos/config"
	"rastreador-precos/internal/api"
	"rastreador-precos/internal/bot"
	"rastreador-precos/internal/database"
	"rastreador-precos/internal/metrics"
	"rastreador-precos/internal/monitor"
	"rastreador-precos/internal/notify"
	"rastreador-precos/internal/queue"
	"rastreador-precos/internal/ratelimit"
	"rastreador-precos/internal/scraper"
	"rastreador-precos/internal/tracking"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Carregar variáveis de ambiente
	envErr := godotenv.Load()

	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		slog.Error("erro ao carregar configurações", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Inicializar banco de dados
	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("erro ao inicializar banco de dados", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Rate limit por loja só existe com Redis configurado
	var limiter scraper.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis indisponível, seguindo sem rate limit", "addr", cfg.RedisAddr, "error", err)
		} else {
			limiter = ratelimit.New(rdb, logger, cfg.RateLimit, cfg.RateBurst)
			logger.Info("rate limit ativo", "addr", cfg.RedisAddr, "rate", cfg.RateLimit, "burst", cfg.RateBurst)
		}
	}

	registry := scraper.NewRegistry(scraper.NewFetcher(cfg.FetchTimeout, limiter, logger), logger)

	// Bot do Telegram é opcional; sem ele os alertas vão para o log
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	telegramBot, err := bot.Init(cfg.TelegramBotToken, logger)
	switch {
	case cfg.TelegramBotToken == "":
		logger.Info("TELEGRAM_BOT_TOKEN vazio, alertas serão apenas registrados no log")
	case err != nil:
		logger.Error("erro ao inicializar bot do Telegram", "error", err)
		os.Exit(1)
	default:
		notifier = notify.NewTelegramNotifier(telegramBot, logger)
	}

	evaluator := monitor.NewEvaluator(db, notifier, cfg.AlertDedup, logger)
	mon := monitor.New(db, registry, evaluator, monitor.Config{
		Interval:      cfg.CheckInterval,
		BatchSize:     cfg.BatchSize,
		BatchDelay:    cfg.BatchDelay,
		RetryAttempts: cfg.FetchRetryAttempts,
		RetryDelay:    cfg.FetchRetryDelay,
	}, logger)

	refreshQueue := queue.New(logger, cfg.RefreshWorkers, cfg.RefreshQueueCapacity)
	refreshQueue.Start(ctx)
	metrics.RegisterQueueDepth(refreshQueue.Len)

	trackers := tracking.NewService(db, mon, refreshQueue, logger)

	// Iniciar monitoramento em background
	go mon.Start(ctx)

	if telegramBot != nil {
		handler := bot.NewHandler(telegramBot, trackers, mon, evaluator, cfg.TelegramAdminChatID, logger)
		go handler.Run(ctx, telegramBot)
	}

	srv := api.NewServer(trackers, mon, evaluator, db, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api http ouvindo", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("servidor http falhou", "error", err)
			stop()
		}
	}()

	// Aguardar sinal de interrupção
	<-ctx.Done()
	logger.Info("encerrando rastreador...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("falha ao encerrar servidor http", "error", err)
	}
	if err := refreshQueue.Shutdown(5 * time.Second); err != nil {
		logger.Error("falha ao encerrar fila de atualização", "error", err)
	}
}
