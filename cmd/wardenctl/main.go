package main

import (
	"fmt"
	"io"
	"os"

	"warden/internal/automod"
	"warden/internal/config"
	"warden/internal/storage"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := cli.App{
		Name:   "wardenctl",
		Usage:  "inspect and configure warden auto-moderation offline",
		Writer: out,
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "database-driver",
			Usage:   "sqlite or postgres (defaults to the config file)",
			EnvVars: []string{"DATABASE_DRIVER"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database DSN (defaults to the config file)",
			EnvVars: []string{"DATABASE_URL"},
		},
	}

	app.Commands = []*cli.Command{
		rulesCmd,
		violationsCmd,
		reportCmd,
		premiumCmd,
	}

	return app.Run(args)
}

// openStore resolves database settings from the config layers, lets flags
// override them and runs migrations.
func openStore(cctx *cli.Context) (*storage.Store, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	driver := cfg.Database.Driver
	if v := cctx.String("database-driver"); v != "" {
		driver = v
	}
	dsn := cfg.Database.DSN
	if v := cctx.String("database-url"); v != "" {
		dsn = v
	}
	store, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// adminEngine exposes the engine's validated accessors without detectors or
// a gateway connection.
func adminEngine(store *storage.Store) *automod.Engine {
	return automod.New(store, store, nil, nil, automod.Options{}, zap.NewNop())
}
