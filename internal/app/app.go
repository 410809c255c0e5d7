package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/config"
	"github.com/five82/quizwhiz/internal/fakeapi"
	"github.com/five82/quizwhiz/internal/feed"
	"github.com/five82/quizwhiz/internal/form"
	"github.com/five82/quizwhiz/internal/logging"
	"github.com/five82/quizwhiz/internal/prefs"
	"github.com/five82/quizwhiz/internal/session"
	"github.com/five82/quizwhiz/internal/ui"
	"github.com/five82/quizwhiz/internal/usercache"
)

// Version is reported in the User-Agent header.
var Version = "dev"

// Options configure a QuizWhiz run.
type Options struct {
	ConfigPath   string
	EnvFile      string    // empty uses ./.env when present
	PrefsPath    string    // empty uses ~/.config/quizwhiz/prefs.toml
	RefreshEvery int       // seconds; zero uses the configured value
	Offline      bool      // serve a seeded in-process backend instead of the remote one
	LogWriter    io.Writer // when set, logs go here instead of the configured file
}

// runtime is one fully wired client: config, logger, session, remote
// client, user cache and views.
type runtime struct {
	cfg    config.Config
	logs   *logging.Log
	log    zerolog.Logger
	closer io.Closer
	fake   *fakeapi.Server
	sess   *session.Manager
	client *api.Client
	users  *usercache.Cache
	hub    *feed.Hub
}

func open(ctx context.Context, opts Options) (*runtime, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	policy, err := session.ParsePolicy(cfg.OnUnauthorized)
	if err != nil {
		return nil, err
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshEvery = time.Duration(opts.RefreshEvery) * time.Second
	}

	logOpts := logging.Options{Level: cfg.LogLevel, Path: cfg.LogFile}
	if opts.LogWriter != nil {
		logOpts = logging.Options{Level: cfg.LogLevel, Writer: opts.LogWriter}
	}
	logs, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	rt := &runtime{cfg: cfg, logs: logs, log: logs.Logger}

	if opts.Offline {
		rt.fake = fakeapi.NewServer()
		rt.fake.Seed()
		if err := rt.fake.Start("127.0.0.1:0"); err != nil {
			rt.Close()
			return nil, fmt.Errorf("start offline backend: %w", err)
		}
		rt.cfg.BackendURL = rt.fake.URL()
		rt.cfg.SessionStore = config.StoreMemory
		rt.log.Info().Str("url", rt.cfg.BackendURL).Msg("offline backend started")
	}

	store, closer, err := openStore(rt.cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closer = closer

	rt.sess = session.NewManager(store, rt.log.With().Str("component", "session").Logger())
	if err := rt.sess.Restore(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("ignoring unreadable session")
	}

	rt.client, err = api.NewClient(rt.cfg.BackendURL,
		api.WithTokenSource(rt.sess),
		api.WithTimeout(rt.cfg.Timeout),
		api.WithUserAgent("quizwhiz/"+Version),
		api.WithLogger(rt.log.With().Str("component", "api").Logger()),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	rt.client.SetUnauthorizedHandler(session.Handler(policy, rt.sess, rt.client))

	rt.users = usercache.New(rt.client, usercache.WithLogger(rt.log))
	rt.hub = feed.New(rt.client, rt.sess, rt.users, feed.Deps{
		Names:       rt.users,
		MaxAttempts: rt.cfg.MaxAttempts,
		Log:         rt.log,
	})
	return rt, nil
}

func openStore(cfg config.Config) (session.Store, io.Closer, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return &session.MemoryStore{}, nil, nil
	case config.StoreSQLite:
		db, err := session.OpenSQLite(cfg.SessionPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		return db, db, nil
	default:
		return session.FileStore{Path: cfg.SessionPath}, nil, nil
	}
}

// Close releases everything open opened. Safe to call on a partial runtime.
func (rt *runtime) Close() {
	if rt.closer != nil {
		if err := rt.closer.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("close session store")
		}
	}
	if rt.fake != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = rt.fake.Stop(ctx)
		cancel()
	}
	_ = rt.logs.Close()
}

// Run boots the QuizWhiz TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	userPrefs := prefs.Load(opts.PrefsPath)
	theme := userPrefs.Theme
	if theme == "" {
		theme = rt.cfg.Theme
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	StartRefresher(ctx, rt.hub, rt.cfg.RefreshEvery, rt.log)

	rt.log.Info().Str("backend", rt.cfg.BackendURL).Bool("signed_in", rt.signedIn()).Msg("starting ui")
	return ui.Run(ui.Options{
		Context:   ctx,
		Hub:       rt.hub,
		Session:   rt.sess,
		ThemeName: theme,
		Tab:       userPrefs.Tab,
		PrefsPath: opts.PrefsPath,
		Log:       rt.log.With().Str("component", "ui").Logger(),
	})
}

// Login signs in and persists the session for later runs.
func Login(ctx context.Context, opts Options, username, password string) (api.User, error) {
	rt, err := open(ctx, opts)
	if err != nil {
		return api.User{}, err
	}
	defer rt.Close()

	return rt.hub.Account.Login(ctx, form.Login{Username: username, Password: password})
}

// Logout forgets the persisted session. Logging out twice is not an error.
func Logout(ctx context.Context, opts Options) error {
	rt, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.hub.Account.Logout(ctx)
}

// WhoAmI returns the signed-in user, refreshed from the backend. When the
// backend cannot be reached the stored profile is returned with the error.
func WhoAmI(ctx context.Context, opts Options) (api.User, error) {
	rt, err := open(ctx, opts)
	if err != nil {
		return api.User{}, err
	}
	defer rt.Close()

	if !rt.signedIn() {
		return api.User{}, api.ErrNoSession
	}
	u, err := rt.hub.Account.Profile(ctx)
	if err != nil {
		if errors.Is(err, api.ErrNoSession) || api.IsKind(err, api.KindUnauthorized) {
			return api.User{}, err
		}
		return rt.sess.User(), err
	}
	return u, nil
}

func (rt *runtime) signedIn() bool {
	_, ok := rt.sess.Current()
	return ok
}
