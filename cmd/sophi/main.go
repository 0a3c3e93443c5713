package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/config"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootOptions are the global flags
type rootOptions struct {
	configPath string
	dev        bool
	ephemeral  bool
	audioFile  string
	bridge     bool

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sophi",
		Short: "Chat with the Sophi assistant from the terminal",
		Long: `A client for the Sophi conversational assistant.

Sign in, then chat in text or voice over the assistant's real-time channel.
The session token is kept in a local SQLite file so the next start resumes
without signing in again.

Quick Start:
  sophi chat             # interactive chat
  sophi serve            # local bridge API for a browser front-end
  sophi logout           # forget the stored session`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML or TOML file of settings, layered under the environment")
	flags.BoolVar(&opts.dev, "dev", false, "Development logging (debug level, console format)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "Keep credentials in memory only")
	flags.StringVar(&opts.audioFile, "audio-file", "", "Send this file as the recording instead of capturing the microphone")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCmd(opts),
		newServeCmd(opts),
		newLogoutCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and logging once flags are parsed
func (o *rootOptions) load() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if o.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if o.ephemeral {
		cfg.Storage.Ephemeral = true
	}

	o.cfg = cfg
	o.logger = logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	return nil
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts.cfg, opts.logger, opts.audioFile)
			if err != nil {
				return err
			}
			defer c.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			runErr := make(chan error, 1)
			go func() { runErr <- c.run(ctx, opts.bridge || opts.cfg.Bridge.Enabled) }()

			render := renderer{}
			if opts.bridge || opts.cfg.Bridge.Enabled {
				base := "http://" + opts.cfg.Bridge.Addr + "/api/audio/"
				render.audioURL = func(ref types.AudioRef) string { return base + string(ref) }
			}

			in, out, closeIn, err := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout())
			if err == nil {
				err = newREPL(c.orch, in, out, render).run(ctx)
				closeIn()
			}
			stop()
			if rerr := <-runErr; rerr != nil {
				return rerr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.bridge, "bridge", false, "Also serve the local bridge API")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session headless behind the local bridge API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Bridge.Addr = addr
			}
			c, err := newClient(opts.cfg, opts.logger, opts.audioFile)
			if err != nil {
				return err
			}
			defer c.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			opts.logger.Info("Starting Sophi bridge",
				zap.String("addr", opts.cfg.Bridge.Addr),
				zap.String("api", opts.cfg.API.BaseURL),
				zap.String("ws", opts.cfg.API.WSURL))
			return c.run(ctx, true)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from SOPHI_BRIDGE_ADDR)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.cfg)
			if err != nil {
				return fmt.Errorf("failed to open credential store: %w", err)
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sophi %s (commit: %s)\n", version, commit)
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
