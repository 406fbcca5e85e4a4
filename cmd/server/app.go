package main

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/adapter/wave"
	"github.com/yourorg/wave-connector/internal/adapter/wave/aggregated"
	"github.com/yourorg/wave-connector/internal/adapter/wave/client"
	"github.com/yourorg/wave-connector/internal/circuitbreaker"
	"github.com/yourorg/wave-connector/internal/config"
	custom_context "github.com/yourorg/wave-connector/internal/context"
	"github.com/yourorg/wave-connector/internal/orchestrator"
	"github.com/yourorg/wave-connector/internal/policy"
	"github.com/yourorg/wave-connector/internal/processor"
	"github.com/yourorg/wave-connector/internal/reporting"
)

const journalLimit = 10000

// app holds everything the HTTP handlers need.
type app struct {
	orchestrator    *orchestrator.Orchestrator
	journal         *reporting.Journal
	reporter        *reporting.RetrospectiveReporter
	defaultMerchant string
	logger          *zap.Logger
}

func newApp(registry map[string]adapter.ConnectorAdapter, repo custom_context.MerchantConnectorRepository, defaultMerchant string, log *zap.Logger) *app {
	journal := reporting.NewJournal(journalLimit)
	return &app{
		orchestrator:    orchestrator.NewOrchestrator(processor.NewProcessor(registry), custom_context.NewContextBuilder(repo), journal, log),
		journal:         journal,
		reporter:        reporting.NewRetrospectiveReporter(),
		defaultMerchant: defaultMerchant,
		logger:          log,
	}
}

// buildApp wires the Wave connector from cfg. The returned func releases external connections.
func buildApp(cfg *config.Config, log *zap.Logger) (*app, func(), error) {
	cleanup := func() {}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		Logger:           log,
	})
	waveClient := client.New(
		client.WithBaseURL(cfg.Wave.BaseURL),
		client.WithHTTPClient(&http.Client{Timeout: cfg.Wave.Timeout}),
		client.WithCircuitBreaker(breaker),
		client.WithLogger(log),
	)

	retry, err := policy.NewRetryPolicy(cfg.Aggregated.RetryExpression, cfg.Aggregated.ValidationAttempts)
	if err != nil {
		return nil, cleanup, err
	}
	resolverOpts := []aggregated.ResolverOption{
		aggregated.WithRetryPolicy(retry),
		aggregated.WithBackoff(cfg.Aggregated.BackoffInitial, cfg.Aggregated.BackoffMax),
		aggregated.WithResolverLogger(log),
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, cleanup, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		cleanup = func() { _ = rdb.Close() }
		resolverOpts = append(resolverOpts,
			aggregated.WithClaimStore(aggregated.NewRedisClaimStore(rdb, ""), cfg.Redis.ClaimTTL),
			aggregated.WithIDCache(aggregated.NewRedisIDCache(rdb, "")),
		)
		log.Info("using redis for aggregated merchant coordination", zap.String("addr", cfg.Redis.Addr))
	} else {
		resolverOpts = append(resolverOpts, aggregated.WithClaimStore(aggregated.NewInMemoryClaimStore(), cfg.Redis.ClaimTTL))
	}

	fallbacks, err := aggregated.ParseFallbackStrategies(cfg.Wave.FallbackStrategies)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	waveAdapter := wave.New(
		wave.WithClient(waveClient),
		wave.WithResolver(aggregated.NewResolver(waveClient, resolverOpts...)),
		wave.WithFallbackStrategies(fallbacks),
		wave.WithLogger(log),
	)

	repo := custom_context.NewInMemoryMerchantConnectorRepository()
	repo.AddAccount(sandboxAccount(cfg.Sandbox))

	registry := map[string]adapter.ConnectorAdapter{waveAdapter.GetName(): waveAdapter}
	return newApp(registry, repo, cfg.Sandbox.MerchantID, log), cleanup, nil
}

// sandboxAccount builds the Wave account the sandbox server drives.
func sandboxAccount(sb config.SandboxConfig) custom_context.MerchantConnectorAccount {
	creds := custom_context.Credentials{AuthType: custom_context.AuthTypeHeaderKey, APIKey: custom_context.Secret(sb.APIKey)}
	switch {
	case sb.APIKey == "":
		creds.AuthType = custom_context.AuthTypeNoKey
	case sb.Key1 != "":
		creds.AuthType = custom_context.AuthTypeBodyKey
		creds.Key1 = custom_context.Secret(sb.Key1)
	}
	account := custom_context.MerchantConnectorAccount{
		MerchantID:    sb.MerchantID,
		ProfileName:   sb.ProfileName,
		ConnectorName: wave.ConnectorName,
		Credentials:   creds,
	}
	if sb.Metadata != "" {
		account.Metadata = json.RawMessage(sb.Metadata)
	}
	return account
}
