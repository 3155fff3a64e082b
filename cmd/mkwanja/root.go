package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mkwanja/internal/backend"
	"mkwanja/internal/cli"
	"mkwanja/internal/config"
	"mkwanja/internal/log"
	"mkwanja/internal/services"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	envFile  string
	backend  string
	dbPath   string
	logLevel string

	cfg     *config.Config
	logger  *log.Logger
	res     *backend.Result
	service *services.LedgerService
}

// run executes one command line and releases the backend afterwards,
// whether or not the command failed.
func run(args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mkwanja",
		Short:         "A personal budget ledger",
		Long:          "mkwanja records expenses against a monthly income and savings target and reports how much is safe to spend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&a.backend, "backend", "", "storage backend (sqlite or memory), overrides DATA_BACKEND")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path, overrides SQLITE_DB_PATH")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(
		newServeCmd(a),
		newExpenseCmd(a),
		newCategoryCmd(a),
		newSettingsCmd(a),
		newSummaryCmd(a),
		newExportCmd(a),
		newHashPINCmd(a),
	)
	return root
}

// init loads configuration and logging. Flags win over the environment.
func (a *app) init() error {
	if err := cli.LoadEnvFile(a.envFile); err != nil {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}

	cfg := config.Load()
	if a.backend != "" {
		cfg.DataBackend = a.backend
	}
	if a.dbPath != "" {
		cfg.SQLiteDBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel, a.errOut)
	return nil
}

// ledger opens the configured backend and wraps it in a service. Extra
// options are applied after the defaults.
func (a *app) ledger(ctx context.Context, withEvents bool, opts ...services.Option) (*services.LedgerService, error) {
	if a.service != nil {
		return a.service, nil
	}

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	if !withEvents {
		bcfg.AMQPURL = ""
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	a.res = res

	base := []services.Option{services.WithRecentLimit(a.cfg.RecentLimit)}
	if res.Events != nil {
		base = append(base, services.WithPublisher(res.Events))
	}
	a.service = services.NewLedgerService(res.Store, append(base, opts...)...)
	return a.service, nil
}

func (a *app) close() error {
	if a.res == nil {
		return nil
	}
	err := a.res.Cleanup()
	a.res, a.service = nil, nil
	return err
}
