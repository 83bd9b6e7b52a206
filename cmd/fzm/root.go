package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fzmanager/fzm/internal/app"
	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/config"
	"github.com/fzmanager/fzm/internal/logging"
)

// env carries what every command needs, built once before the command runs.
type env struct {
	cfg      *config.Config
	store    *config.Store
	defaults config.Defaults
	log      *zap.Logger

	token       string
	syncTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "fzm",
		Short: "Factorio Zone Manager",
		Long: "Manage a Factorio server hosted on factorio.zone: start and stop it, " +
			"manage uploaded mods and save slots, and follow the server console.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd.Name() == "fzm")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&e.token, "token", "", "user token (defaults to the one remembered from the last run)")
	cmd.PersistentFlags().DurationVar(&e.syncTimeout, "sync-timeout", time.Minute, "how long to wait for the initial session sync")

	cmd.AddCommand(
		newStatusCmd(e),
		newUploadModsCmd(e),
		newUploadSaveCmd(e),
		newDownloadSaveCmd(e),
		newModSettingsCmd(e),
	)
	return cmd
}

// init loads configuration, the defaults store and the logger. The terminal
// UI owns the screen, so it only logs when FZ_LOG_FILE is set; the other
// commands log to stderr otherwise.
func (e *env) init(interactive bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.store = config.NewStore(cfg.StorePath)

	var outputs []string
	switch {
	case cfg.Log.File != "":
		outputs = []string{cfg.Log.File}
	case !interactive:
		outputs = []string{"stderr"}
	}
	e.log, err = logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: outputs,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	e.defaults, err = e.store.Load()
	if err != nil {
		e.log.Warn("ignoring unreadable defaults", zap.String("path", e.store.Path()), zap.Error(err))
	}
	if e.token == "" {
		e.token = e.defaults.UserToken
	}
	return nil
}

func (e *env) newClient() *client.Client {
	svc := e.cfg.ServiceConfig
	return client.New(client.Options{
		UserToken:         e.token,
		Host:              svc.Host,
		WSURL:             svc.WSEndpoint,
		APIURL:            svc.APIEndpoint,
		VerifyTLS:         svc.VerifyTLS,
		RequestTimeout:    svc.RequestTimeout,
		StopTimeout:       svc.StopTimeout,
		KeepaliveInterval: svc.KeepaliveInterval,
		KeepaliveTimeout:  svc.KeepaliveTimeout,
		SyncPollInterval:  svc.SyncPoll,
		Logger:            e.log,
	})
}

func (e *env) runTUI(ctx context.Context) error {
	c := e.newClient()
	m := app.New(app.Options{Service: c, Store: e.store, Logger: e.log.Named("ui")})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// withSession connects, waits for the first full sync, remembers the
// confirmed user token and runs fn. The connection is closed when fn
// returns.
func (e *env) withSession(ctx context.Context, fn func(context.Context, *client.Client) error) error {
	c := e.newClient()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	connErr := make(chan error, 1)
	go func() { connErr <- c.Connect(ctx) }()

	syncCtx, syncCancel := context.WithTimeout(ctx, e.syncTimeout)
	defer syncCancel()
	synced := make(chan error, 1)
	go func() { synced <- c.WaitUntilSynced(syncCtx) }()

	select {
	case err := <-connErr:
		return fmt.Errorf("connecting to %s: %w", e.cfg.Host, err)
	case err := <-synced:
		if err != nil {
			return err
		}
	}

	if token := c.UserToken(); token != "" && token != e.defaults.UserToken {
		err := e.store.Update(func(d *config.Defaults) { d.UserToken = token })
		if err != nil {
			e.log.Warn("saving user token", zap.Error(err))
		}
	}

	err := fn(ctx, c)
	cancel()
	<-connErr
	return err
}
