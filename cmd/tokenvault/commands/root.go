package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/guilded-university/tokenvault/internal/app"
	"github.com/guilded-university/tokenvault/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return newRootCommand(os.Stdin, os.Stdout, os.Environ).Run(ctx, args)
}

// newRootCommand builds the command tree. stdin and stdout are injected so
// tests can drive prompts and capture output.
func newRootCommand(stdin *os.File, stdout io.Writer, environFunc func() []string) *cli.Command {
	r := &runner{stdin: stdin, stdout: stdout, environFunc: environFunc}

	return &cli.Command{
		Name:      "tokenvault",
		Usage:     "Encrypted storage for a single authentication token",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file merged into the environment for key material",
				Value: app.DefaultConfigEnvFile,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "token--file",
				Usage: "path to the encrypted token file",
				Value: app.DefaultConfigTokenFile,
			},
		},
		Commands: []*cli.Command{
			r.storeCommand(),
			r.retrieveCommand(),
			r.serveCommand(),
			r.keyringCommand(),
		},
	}
}

// runner carries the I/O shared by all actions.
type runner struct {
	stdin       *os.File
	stdout      io.Writer
	environFunc func() []string
}

// setup loads configuration and installs logging. The returned cleanup
// flushes log exporters and must always be called.
func (r *runner) setup(ctx context.Context, cmd *cli.Command) (*app.Config, func(), error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, r.environFunc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Key material is looked up per operation, so merging after config still reaches it
	if err := loadDotEnv(cfg.EnvFile); err != nil {
		return nil, nil, fmt.Errorf("failed to load env file: %w", err)
	}

	shutdown, err := observability.Instrument(ctx, cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	cleanup := func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %s\n", err)
		}
	}

	return cfg, cleanup, nil
}

func (r *runner) newApp(ctx context.Context, cmd *cli.Command) (*app.App, func(), error) {
	cfg, cleanup, err := r.setup(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, cleanup, nil
}

func (r *runner) storeCommand() *cli.Command {
	return &cli.Command{
		Name:      "store",
		Usage:     "encrypt a token and write it to the token file",
		ArgsUsage: "[TOKEN]",
		Description: "The token is taken from the first argument. Without one it is read " +
			"from a hidden terminal prompt, or from the first line of stdin when piped.\n\n" +
			"An argument is visible in the process list and shell history. Prefer the " +
			"prompt or stdin for real credentials.",
		Action: r.storeAction,
	}
}

func (r *runner) storeAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := r.newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var token string
	if cmd.Args().Len() > 0 {
		token = cmd.Args().First()
	} else {
		token, err = newPrompter(r.stdin, os.Stderr).secret("Token")
		if err != nil {
			return err
		}
	}

	// Errors are returned unwrapped so the boundary prints the classified message
	return application.Store(ctx, token)
}

func (r *runner) retrieveCommand() *cli.Command {
	return &cli.Command{
		Name:   "retrieve",
		Usage:  "decrypt the token file and print the token",
		Action: r.retrieveAction,
	}
}

func (r *runner) retrieveAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := r.newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := application.Retrieve(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(r.stdout, token)
	return err
}

func (r *runner) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve store and retrieve over a loopback HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: int(app.DefaultConfigServerPort),
			},
		},
		Action: r.serveAction,
	}
}

func (r *runner) serveAction(ctx context.Context, cmd *cli.Command) error {
	application, cleanup, err := r.newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.InfoContext(ctx, "starting")

	if err := application.Serve(ctx); err != nil {
		return fmt.Errorf("app failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
