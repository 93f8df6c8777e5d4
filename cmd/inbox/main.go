// Package main is a terminal client for lost-and-found conversations.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/lostfound/internal/client"
	"github.com/vovakirdan/lostfound/internal/config"
	"github.com/vovakirdan/lostfound/internal/identity"
	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/log"
)

// labelCacheSize bounds the client-side label cache.
const labelCacheSize = 512

type options struct {
	configPath string
	overrides  config.Config
	fullName   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "lostfound-inbox",
		Short:         "Chat about lost and found items from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, false)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&opts.overrides.Inbox.ServerURL, "server", "", "server base URL")
	pf.StringVar(&opts.overrides.Inbox.Email, "email", "", "account email")
	pf.StringVar(&opts.overrides.Inbox.Password, "password", "", "account password")
	pf.DurationVar(&opts.overrides.Inbox.PollInterval, "poll-interval", 0, "how often to refresh the inbox")
	pf.StringVar(&opts.overrides.LogLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account, then open the inbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, true)
		},
	}
	register.Flags().StringVar(&opts.fullName, "full-name", "", "display name shown to others")
	root.AddCommand(register)

	root.SetContext(context.Background())
	return root
}

func run(parent context.Context, opts *options, register bool) error {
	_ = godotenv.Load()

	boot := log.NewWithWriter(os.Stderr, "warn", "console")
	cfg, _, err := config.Load(boot, opts.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(opts.overrides)
	if cfg.Inbox.Email == "" || cfg.Inbox.Password == "" {
		return fmt.Errorf("email and password are required (flags, config or LOSTFOUND_INBOX_EMAIL / LOSTFOUND_INBOX_PASSWORD)")
	}

	logger := log.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(cfg.Inbox.ServerURL, client.Options{
		ReconnectInterval: cfg.Inbox.ReconnectInterval,
		Logger:            log.Component(logger, "client"),
	})
	if err != nil {
		return err
	}

	var account client.Account
	if register {
		account, err = c.Register(ctx, cfg.Inbox.Email, cfg.Inbox.Password, opts.fullName)
	} else {
		account, err = c.Login(ctx, cfg.Inbox.Email, cfg.Inbox.Password)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	labels := identity.NewCache(c, cfg.Inbox.LabelCacheTTL, labelCacheSize)
	session, err := inbox.NewSession(account.ID, c, labels, inbox.SessionConfig{
		PollInterval: cfg.Inbox.PollInterval,
		SendTimeout:  cfg.Inbox.SendTimeout,
		WatchBuffer:  cfg.Inbox.WatchBuffer,
	}, log.Component(logger, "inbox"))
	if err != nil {
		return err
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	out := bufio.NewWriter(os.Stdout)
	r := newREPL(session, account.Label, out, zerolog.Nop())
	return r.Run(ctx, os.Stdin)
}
