// Package server initializes and runs the account server: it opens the
// database, applies migrations, wires the services and serves gRPC until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/logging"
	"github.com/scsp-app/scsp-server/internal/server/auth"
	"github.com/scsp-app/scsp-server/internal/server/config"
	"github.com/scsp-app/scsp-server/internal/server/identity"
	"github.com/scsp-app/scsp-server/internal/server/notify"
	"github.com/scsp-app/scsp-server/internal/server/repositories/repomanager"
	"github.com/scsp-app/scsp-server/internal/server/services"
	"github.com/scsp-app/scsp-server/internal/timex"

	gs "github.com/scsp-app/scsp-server/internal/server/grpc"
)

const dbPingTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	accounts *services.AccountService
	tokens   *auth.Minter
}

// NewApp fails when the configuration is incomplete, the database is
// unreachable or a migration fails.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app, err := newApp(c, logger, db, rm, timex.SystemClock{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, clock timex.Clock) (*App, error) {
	minter, err := auth.NewMinter(c.SecretKey, c.Issuer, c.Audience, c.AccessTokenValidityDuration, clock)
	if err != nil {
		return nil, fmt.Errorf("access tokens: %w", err)
	}
	links, err := auth.NewUserTokens(c.SecretKey, c.UserTokenValidityDuration, clock)
	if err != nil {
		return nil, fmt.Errorf("link tokens: %w", err)
	}

	tx := dbx.NewSQLTransactor(db, nil)
	sender := newSender(c, logger)

	otps := services.NewOtpService(tx, rm, sender, clock, logger, c)
	refresh := services.NewRefreshTokenService(db, tx, rm, clock, logger, c)
	store := identity.NewStore(db, rm, clock)
	apps := auth.NewAppTokenSet(c.AppTokens)
	if apps.Len() == 0 {
		logger.Warn(context.Background(), "no app tokens configured, registration is closed")
	}

	accounts := services.NewAccountService(store, otps, refresh, minter, links, apps, logger, c)

	return &App{config: c, logger: logger, db: db, accounts: accounts, tokens: minter}, nil
}

// newSender picks SMTP delivery when a host is configured and logs mail otherwise.
func newSender(c *config.Config, logger logging.Logger) notify.Sender {
	if c.SMTPHost == "" {
		logger.Warn(context.Background(), "SMTP host not set, emails will only be logged")
		return notify.NewLogSender(logger.With("module", "mail"))
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		UseTLS:   c.SMTPUseTLS,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.tokens, gs.NewRateLimiter(nil))

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
