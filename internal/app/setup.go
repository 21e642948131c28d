package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elicitlabs/elicit/db"
	"github.com/elicitlabs/elicit/internal/brief"
	"github.com/elicitlabs/elicit/internal/config"
	"github.com/elicitlabs/elicit/internal/database"
	"github.com/elicitlabs/elicit/internal/engine"
	"github.com/elicitlabs/elicit/internal/ideas"
	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/session"
	"github.com/elicitlabs/elicit/internal/turn"
	"github.com/elicitlabs/elicit/internal/usage"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, client, err := provideModelClient(ctx, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.LLM = client

	a.Sessions = session.NewStore(pool, logger)

	usageStore := usage.NewStore(pool)
	a.Usage = usage.NewLimiter(usageStore, usage.Quotas{
		Free: cfg.FreeTierQuota,
		Pro:  cfg.ProTierQuota,
	}, logger)

	turns := turn.NewProcessor(client, cfg.TurnModel, nil, logger)
	briefs := brief.NewSynthesizer(client, cfg.SynthesisModel, logger)
	generator := ideas.NewGenerator(client, cfg.GenerationModel, cfg.GenerationFallbackModel, logger)

	a.Engine = engine.New(a.Sessions, a.Usage, turns, briefs, generator, logger)

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// provideModelClient initializes Genkit with the Gemini plugin and
// wraps it in the internal client.
func provideModelClient(ctx context.Context, logger log.Logger) (*genkit.Genkit, llm.Client, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, nil, errors.New("initializing genkit with gemini provider")
	}
	logger.Info("initialized Genkit with gemini provider")

	client, err := llm.NewGenkitClient(g, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating model client: %w", err)
	}

	return g, client, nil
}
