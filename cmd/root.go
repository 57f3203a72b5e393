package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openta/adaptive/internal/bank"
	"github.com/openta/adaptive/internal/config"
	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/logging"
	"github.com/openta/adaptive/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "adaptive",
	Short: "Adaptive mastery and review scheduling",
	Long: "adaptive tracks per-topic mastery from quiz attempts, schedules spaced reviews, " +
		"builds daily quizzes and exam runways, and raises interventions from behavioral signals.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ADAPTIVE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML, JSON or TOML config file")
	rootCmd.PersistentFlags().String("bank", "", "Path to a question bank JSON file (default: embedded sample bank)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log output: dev or prod (overrides config)")

	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(runwayCmd)
	rootCmd.AddCommand(gapCheckCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(interventionCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured DSN, then ADAPTIVE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Store.DSN != "" {
		return cfg.Store.DSN, nil
	}
	return store.DefaultDBPath()
}

// loadBank returns the --bank file, or the embedded sample bank.
func loadBank(cmd *cobra.Command) (*bank.Bank, error) {
	p, _ := cmd.Flags().GetString("bank")
	if p == "" {
		return bank.Default(), nil
	}
	return bank.LoadFile(p)
}

// openEngine loads configuration, opens the store and builds the engine.
// The caller closes the engine.
func openEngine(cmd *cobra.Command) (*engine.Engine, *logging.Logger, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if mode, _ := cmd.Flags().GetString("log-mode"); mode != "" {
		cfg.Log.Mode = mode
	}

	log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	b, err := loadBank(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load bank: %w", err)
	}

	var repo store.Repository
	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo = store.NewMemory()
	default:
		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve database path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		repo = st
	}

	eng, err := engine.New(engine.Options{
		Config: cfg,
		Bank:   b,
		Repo:   repo,
		Logger: log,
	})
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	return eng, log, nil
}

// withEngine runs fn against an opened engine and releases it afterwards.
func withEngine(cmd *cobra.Command, fn func(eng *engine.Engine) error) error {
	eng, log, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer eng.Close()
	return fn(eng)
}
