package daemon

import (
	"context"

	"github.com/matheus3301/sigma/internal/api"
	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/bus"
	"github.com/matheus3301/sigma/internal/config"
	"github.com/matheus3301/sigma/internal/convindex"
	"github.com/matheus3301/sigma/internal/lock"
	"github.com/matheus3301/sigma/internal/logging"
	"github.com/matheus3301/sigma/internal/metrics"
	"github.com/matheus3301/sigma/internal/msglog"
	"github.com/matheus3301/sigma/internal/outbox"
	"github.com/matheus3301/sigma/internal/prefs"
	"github.com/matheus3301/sigma/internal/profile"
	"github.com/matheus3301/sigma/internal/realtime"
	"github.com/matheus3301/sigma/internal/status"
	"github.com/matheus3301/sigma/internal/store"
	intsync "github.com/matheus3301/sigma/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	ConfigPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideMetrics,
			provideLock,
			provideStore,
			providePrefs,
			provideIndex,
			provideLogs,
			provideBackend,
			provideRealtime,
			provideSyncEngine,
			provideSender,
			provideSession,
			provideSessionService,
			provideChatService,
			provideMessageService,
			provideEventService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if err := config.LoadDotEnv(profile.EnvPath()); err != nil {
		return nil, err
	}
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.Level())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideMetrics(b *bus.Bus) *metrics.Metrics {
	m := metrics.New()
	m.WatchBus(b)
	return m
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so that only the lock holder opens the database.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func providePrefs(db *store.DB) *prefs.Prefs {
	return prefs.New(db)
}

func provideIndex(db *store.DB, logger *zap.Logger) *convindex.Index {
	return convindex.New(db, logger)
}

func provideLogs(db *store.DB, logger *zap.Logger) *msglog.Store {
	return msglog.NewStore(db, logger)
}

func provideBackend(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *backend.Client {
	return backend.New(cfg.APIBaseURL, cfg.RequestTimeout(), m, logger)
}

func provideRealtime(cfg *config.Config, p *prefs.Prefs, engine *intsync.Engine, b *bus.Bus, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *realtime.Client {
	return realtime.NewClient(realtime.Options{
		URL:              cfg.SocketURL,
		HandshakeTimeout: cfg.HandshakeTimeout(),
		Policy: realtime.Policy{
			Initial:    cfg.ReconnectInitial(),
			Max:        cfg.ReconnectMax(),
			Multiplier: cfg.ReconnectMultiplier,
			Jitter:     cfg.ReconnectJitter,
		},
		OnAuthFailed: func(reason string) {
			if err := engine.Locked(p.Clear); err != nil {
				logger.Error("failed to clear rejected session", zap.Error(err))
			}
		},
	}, b, machine, m, logger)
}

func provideSyncEngine(p *prefs.Prefs, index *convindex.Index, logs *msglog.Store, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(p, index, logs, b, m, logger)
}

func provideSender(p *prefs.Prefs, index *convindex.Index, logs *msglog.Store, engine *intsync.Engine, rt *realtime.Client, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(p, index, logs, engine, rt, b, m, logger)
}

func provideSession(p *prefs.Prefs, rt *realtime.Client, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger) *api.Session {
	return api.NewSession(p, rt, engine, b, logger)
}

func provideSessionService(p Params, cfg *config.Config, session *api.Session, pr *prefs.Prefs, be *backend.Client, rt *realtime.Client, machine *status.Machine, engine *intsync.Engine, index *convindex.Index) *api.SessionService {
	endpoints := api.Endpoints{APIBaseURL: cfg.APIBaseURL, SocketURL: cfg.SocketURL}
	return api.NewSessionService(p.ProfileName, endpoints, session, pr, be, rt, machine, engine, index)
}

func provideChatService(p *prefs.Prefs, be *backend.Client, session *api.Session, index *convindex.Index, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(p, be, session, index, b, logger)
}

func provideMessageService(p *prefs.Prefs, logs *msglog.Store, index *convindex.Index, engine *intsync.Engine, sender *outbox.Sender, b *bus.Bus) *api.MessageService {
	return api.NewMessageService(p, logs, index, engine, sender, b)
}

func provideEventService(b *bus.Bus, logger *zap.Logger) *api.EventService {
	return api.NewEventService(b, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, rt *realtime.Client, engine *intsync.Engine, session *api.Session, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start sync engine (subscribes to rt.* bus events).
			engine.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// Reconnect with the stored token, if any.
			session.Resume(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			rt.Close()
			engine.Stop()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
