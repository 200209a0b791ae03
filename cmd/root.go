package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/config"
	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/llm"
	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "examdiag",
	Short:        "Diagnose a learner's answers to a whole exam paper",
	Long:         "examdiag judges every answer on an exam paper and aggregates the verdicts into one diagnostic report.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides EXAMDIAG_CONFIG env var)")
	rootCmd.PersistentFlags().String("dsn", "", "Oracle call log DSN (overrides store.dsn)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr from CLI commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(callsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the config file from --config, then EXAMDIAG_CONFIG,
// and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("EXAMDIAG_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if dsn, _ := cmd.Flags().GetString("dsn"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// cliLogger is silent unless --verbose is set.
func cliLogger(cmd *cobra.Command, cfg config.Config) (*logger.Logger, error) {
	if v, _ := cmd.Flags().GetBool("verbose"); !v {
		return logger.Nop(), nil
	}
	return logger.New(cfg.Server.LogMode)
}

// openStore opens the oracle call log. Without a DSN the log is disabled
// and the returned repo discards everything.
func openStore(ctx context.Context, cfg config.Config) (store.EventRepo, func(), error) {
	if cfg.Store.DSN == "" {
		return store.NopEventRepo{}, func() {}, nil
	}
	driver, err := store.ParseDriver(cfg.Store.Driver)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(ctx, driver, cfg.Store.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st.EventRepo(), func() { _ = st.Close() }, nil
}

// buildService wires store, provider, oracle and resolver into a batch
// service. When the provider cannot be configured the service still runs:
// rule-resolved questions are judged and the rest degrade.
func buildService(ctx context.Context, cfg config.Config, log *logger.Logger) (*batch.Service, func(), error) {
	events, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var oracle diagnosis.Oracle
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Free-text questions will be reported as unavailable.")
	} else {
		oracleCfg := cfg.Oracle
		oracleCfg.Timeout = cfg.LLM.Timeout
		oracle = diagnosis.NewLLMOracle(provider, oracleCfg)
	}

	resolver := diagnosis.NewResolver(oracle, log)
	return batch.NewService(resolver, cfg.Batch, log), closeStore, nil
}
