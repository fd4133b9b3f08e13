package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/autoresolve/internal/api/http"
	"github.com/spec-kit/autoresolve/internal/api/http/handlers"
	"github.com/spec-kit/autoresolve/internal/auth"
	"github.com/spec-kit/autoresolve/internal/classifier"
	"github.com/spec-kit/autoresolve/internal/config"
	"github.com/spec-kit/autoresolve/internal/events"
	"github.com/spec-kit/autoresolve/internal/observability"
	"github.com/spec-kit/autoresolve/internal/persistence"
	"github.com/spec-kit/autoresolve/internal/service"
	"github.com/spec-kit/autoresolve/internal/worker"
	"github.com/spec-kit/autoresolve/internal/zendesk"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAlertService(dispatcher, logger, metrics, cfg.Alert).RegisterHandlers()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	var guard service.ResolveGuard
	if redis != nil {
		guard = persistence.NewRedisResolveGuard(redis.Client, cfg.Redis.DedupTTL)
	}

	signatures, err := auth.NewSignatureVerifier(cfg.Webhook.SigningSecret)
	if err != nil {
		logger.Fatal("failed to init signature verifier", zap.Error(err))
	}

	tickets := zendesk.NewClient(cfg.Zendesk.BaseURL, cfg.Zendesk.Username, cfg.Zendesk.APIKey,
		zendesk.WithTimeout(cfg.Zendesk.Timeout))

	tokens, err := classifier.NewTiktokenCounter(classifier.DefaultTokenModel)
	if err != nil {
		logger.Fatal("failed to load tokenizer", zap.Error(err))
	}

	policy, err := classifier.ParseMatchPolicy(cfg.Classifier.MatchPolicy)
	if err != nil {
		logger.Fatal("invalid match policy", zap.Error(err))
	}

	llmOpts := []classifier.OpenAIOption{classifier.WithModel(cfg.LLM.Model)}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, classifier.WithBaseURL(cfg.LLM.BaseURL))
	}
	completer := classifier.NewOpenAICompleter(cfg.LLM.APIKey, llmOpts...)

	resolver := service.NewTicketResolver(tickets, guard, service.ResolverConfig{
		Note:    service.DefaultResolveNote,
		Tag:     cfg.Pipeline.AutoSolveTag,
		Timeout: cfg.Zendesk.Timeout,
	}, logger)

	pipeline := service.NewDecisionPipeline(service.PipelineDependencies{
		Rules:       classifier.NewRuleClassifier(cfg.Classifier.ClosingPhrases, policy),
		Tokens:      tokens,
		Semantic:    classifier.NewSemanticClassifier(completer, cfg.LLM.Timeout),
		Transcripts: tickets,
		Resolver:    resolver,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	}, cfg.Classifier.TokenCeiling)

	runner := worker.NewRunner(logger, cfg.Pipeline.Timeout)

	routes := httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis),
		Webhook: handlers.NewWebhookHandler(signatures, pipeline, runner, logger),
	}
	if cfg.Admin.Enabled() {
		routes.Admin = handlers.NewAdminHandler(pipeline, metrics)
		routes.AdminMiddleware = auth.NewAdminMiddleware(auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.AccessTokenTTLMinutes))
	} else {
		logger.Info("ADMIN_JWT_SECRET not provided; operator API disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env != "development",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, routes)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("match_policy", string(policy)))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(ctx); err != nil {
		logger.Warn("background tasks abandoned", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
