package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/viant/semvec/config"
	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/metrics"
	"github.com/viant/semvec/semantic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	dsn        string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "semvec",
	Short: "Semantic atom store with per-domain vector search",
	Long: `semvec stores text spans with their embeddings in SQLite under packed
semantic addresses (domain, document, item, temporary) and answers vector
queries from in-memory per-domain indexes rebuilt from those rows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if dsn != "" {
			cfg.DSN = dsn
		}
		zc := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "semvec.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "SQLite DSN (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(initCmd, rehydrateCmd, domainsCmd, setCmd, unsetCmd, searchCmd, rankCmd)
}

// openService opens the configured database and returns a service with
// rehydrated indexes. The returned close function releases the database.
func openService(ctx context.Context, rehydrate bool) (*semantic.Service, func(), error) {
	db, err := engine.Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	srv, err := semantic.New(db, cfg,
		semantic.WithLogger(logger),
		semantic.WithMetrics(metrics.New(prometheus.NewRegistry())))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if rehydrate {
		if err := srv.Rehydrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return srv, func() { _ = db.Close() }, nil
}

func openDB() (*sql.DB, func(), error) {
	db, err := engine.Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

func parseVector(s string) ([]float32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("vector is required")
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
