// Command scrobble-gateway runs the auth-and-scrobbling gateway that
// links browser sessions to a music-tracking provider account.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/recordshelf/scrobble-gateway/internal/config"
	"github.com/recordshelf/scrobble-gateway/internal/gateway"
	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
	"github.com/recordshelf/scrobble-gateway/internal/session"
	"github.com/recordshelf/scrobble-gateway/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	kv, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer kv.Close()

	// Badger expires entries itself; postgres rows need a sweeper.
	if pg, ok := kv.(*store.Postgres); ok {
		stopSweep := startExpirySweep(pg, time.Hour, logger)
		defer stopSweep()
	}

	var provider gateway.Provider
	if cfg.LastFM.Configured() {
		client, err := lastfm.NewClient(lastfm.Config{
			APIKey: cfg.LastFM.APIKey,
			Secret: cfg.LastFM.Secret,
		})
		if err != nil {
			return fmt.Errorf("creating provider client: %w", err)
		}
		provider = client
	} else {
		// The server still answers status/logout; login reports the
		// missing configuration per request.
		logger.Warn().Msg("provider credentials not configured; login is disabled")
		provider = unconfiguredProvider{}
	}

	sessions := session.NewManager(kv)
	server := gateway.NewServer(cfg, logger, provider, sessions)

	return server.Run()
}

func newLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// expirySweeper is the slice of the postgres store the sweep needs.
type expirySweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// startExpirySweep periodically deletes rows past their hard expiry.
// Reads already filter expired rows, so the sweep only keeps the table
// from growing; the returned stop function ends it.
func startExpirySweep(s expirySweeper, interval time.Duration, logger zerolog.Logger) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				deleted, err := s.DeleteExpired(ctx)
				cancel()
				if err != nil {
					logger.Warn().Err(err).Msg("expired record sweep failed")
				} else if deleted > 0 {
					logger.Info().Int64("deleted", deleted).Msg("swept expired records")
				}
			}
		}
	}()
	return func() { close(done) }
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "badger":
		return store.NewBadger(cfg.Path)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
