package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/cache"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/remote"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/adapters/session"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/config"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/store"
)

var ErrNotLoggedIn = errors.New("not logged in: run \"habitctl login\" first")

// App is everything a command needs. One App serves one invocation.
type App struct {
	Session *session.Session
	Sync    *services.SyncService
	Now     func() time.Time

	closers []func() error
}

// AppFactory builds the App for a command run.
type AppFactory func(ctx context.Context, opts *RootOptions) (*App, error)

func (a *App) Close() error {
	a.Sync.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// requireSession restores persisted credentials.
func (a *App) requireSession(ctx context.Context) error {
	if _, err := a.Session.Restore(ctx); err != nil {
		if errors.Is(err, session.ErrNoCredentials) || errors.Is(err, session.ErrSessionExpired) {
			return fmt.Errorf("%w (%v)", ErrNotLoggedIn, err)
		}
		return err
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// DefaultAppFactory wires the real transport, session store and sync
// service from configuration.
func DefaultAppFactory(stderr io.Writer) AppFactory {
	return func(ctx context.Context, opts *RootOptions) (*App, error) {
		cfg, err := config.LoadClient(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if opts.APIURL != "" {
			cfg.APIURL = opts.APIURL
		}

		logger := newLogger(stderr, opts.Verbose)
		app := &App{Now: time.Now}

		sessionStore, closeStore, err := openSessionStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if closeStore != nil {
			app.closers = append(app.closers, closeStore)
		}

		transport := []remote.Option{
			remote.WithTimeout(cfg.Timeout),
			remote.WithRateLimit(cfg.RateLimit, 1),
			remote.WithLogger(logger),
		}

		// Login and register are public calls; the session authenticates
		// through a client that carries no credentials.
		authClient := remote.NewClient(cfg.APIURL, transport...)
		app.Session = session.NewSession(authClient, sessionStore)

		api := remote.NewClient(cfg.APIURL, append(transport, remote.WithTokenSource(app.Session))...)
		app.Sync = services.NewSyncService(api, store.NewHabitStore(),
			services.WithLogger(logger),
			services.WithMetrics(services.NewMetrics(prometheus.NewRegistry())),
		)

		return app, nil
	}
}

func openSessionStore(ctx context.Context, cfg *config.Client) (session.Store, func() error, error) {
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), nil, nil
	case config.SessionStoreRedis:
		rdb, err := cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: 2,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cli: session store: %w", err)
		}
		return session.NewRedisStore(rdb, 0), rdb.Close, nil
	default:
		path := cfg.SessionFile
		if path == "" {
			p, err := session.DefaultSessionPath()
			if err != nil {
				return nil, nil, fmt.Errorf("cli: session store: %w", err)
			}
			path = p
		}
		return session.NewFileStore(path), nil, nil
	}
}
