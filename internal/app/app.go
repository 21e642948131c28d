// Package app provides application initialization and dependency
// wiring. Setup builds the full component graph — database, model
// client, stores, and the session engine — and App carries it with
// embedded cleanup.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elicitlabs/elicit/internal/config"
	"github.com/elicitlabs/elicit/internal/engine"
	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/session"
	"github.com/elicitlabs/elicit/internal/usage"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	LLM    llm.Client
	Pool   *pgxpool.Pool

	Sessions *session.Store
	Usage    *usage.Limiter
	Engine   *engine.Engine

	cancel context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
