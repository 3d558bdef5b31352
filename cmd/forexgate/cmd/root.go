package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/forexgate/forexgate/config"
	"github.com/forexgate/forexgate/internal/academy"
	"github.com/forexgate/forexgate/internal/logging"
	"github.com/forexgate/forexgate/journal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var rootCmd = &cobra.Command{
	Use:   "forexgate",
	Short: "A staged forex trading academy with risk and behavior gates",
	Long: `Forexgate walks a learner from onboarding to live trading through
eight stages. Every trade passes a written plan review, pre-trade behavior
checks and stage risk limits; losses and impulsive patterns trigger
cooldowns and can move a learner back a stage.

Most commands act on one learner, selected with --user.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile  string
	dbPath   string
	logLevel string
	userID   string
	output   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "learner id")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text|json|yaml")
}

// app is everything a command needs, opened from config and flags.
type app struct {
	cfg   *config.Config
	store *journal.SQLite
	svc   *academy.Service
	log   zerolog.Logger
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	ttl, err := cfg.Cache.ScoreTTLDuration()
	if err != nil {
		return nil, fmt.Errorf("cache ttl: %w", err)
	}

	store, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	svc := academy.New(store,
		academy.WithLogger(log),
		academy.WithScoreTTL(ttl),
		academy.WithDefaultBalance(cfg.Account.Balance),
	)
	cmd.SetContext(logging.WithLogger(cmdContext(cmd), log))
	return &app{cfg: cfg, store: store, svc: svc, log: log}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requireUser() (string, error) {
	if userID == "" {
		return "", errors.New("--user is required")
	}
	return userID, nil
}

// render writes v as json or yaml when --output asks for it, and calls text
// otherwise.
func render(w io.Writer, v any, text func(io.Writer)) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so the json tags name the keys.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(&node)
	case "text", "":
		text(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", output)
}

// readInput decodes a yaml or json file into v using v's json tags.
func readInput(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	data, err = json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
