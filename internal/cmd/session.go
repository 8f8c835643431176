package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core/store"
	"github.com/stacman/stacman/internal/observability"
)

const sessionCloseTimeout = 10 * time.Second

// session bundles the loaded config with a client whose throttle state is
// restored from, and flushed back to, the store.
type session struct {
	cfg    *config.Config
	client *stacman.Client
	store  *store.Store

	closeOnce sync.Once
	closeErr  error
}

// flagOverrides turns the persistent --key/--site flags into config overrides.
func flagOverrides() map[string]any {
	client := map[string]any{}
	if key := strings.TrimSpace(apiKey); key != "" {
		client["key"] = key
	}
	if site := strings.TrimSpace(siteName); site != "" {
		client["site"] = site
	}
	if len(client) == 0 {
		return nil
	}
	return map[string]any{"client": client}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	overrides := flagOverrides()
	if overrides == nil {
		return config.Load(ctx)
	}
	return config.Load(ctx, overrides)
}

// clientOptions maps config onto client options.
func clientOptions(cfg *config.Config) []stacman.ConfigOption {
	return []stacman.ConfigOption{
		stacman.WithBaseURL(cfg.Client.BaseURL),
		stacman.WithSite(cfg.Client.Site),
		stacman.WithUserAgent(cfg.Client.UserAgent),
		stacman.WithTimeout(cfg.Client.Timeout),
		stacman.WithMaxConcurrent(cfg.Client.MaxConcurrent),
		stacman.WithRespectBackoffs(cfg.Client.RespectBackoffs),
		stacman.WithWindow(cfg.Throttle.Limit, cfg.Throttle.Window),
		stacman.WithSafetyMargin(cfg.Throttle.SafetyMargin),
	}
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newSession(ctx, cfg, observability.Current())
}

func newSession(ctx context.Context, cfg *config.Config, logger stacman.Logger) (*session, error) {
	s := &session{cfg: cfg}
	opts := clientOptions(cfg)
	if logger != nil {
		opts = append(opts, stacman.WithLogger(logger))
	}

	if cfg.Throttle.Persist {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = db
		opts = append(opts, stacman.WithThrottleStore(db))
	}

	s.client = stacman.NewClient(cfg.Client.Key, opts...)
	if err := s.client.RestoreThrottle(ctx); err != nil {
		// A broken snapshot should not block requests; the window simply
		// starts fresh.
		if logger != nil {
			logger.Warn("Failed to restore throttle state", zap.Error(err))
		}
	}
	return s, nil
}

// Close drains the client, persists throttle state and closes the store.
// Later calls return the first result.
func (s *session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		defer cancel()

		var errs []error
		if s.client != nil {
			errs = append(errs, s.client.Close(ctx))
		}
		if s.store != nil {
			errs = append(errs, s.store.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
