package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cartridge/replay/internal/config"
)

var (
	cfg        = config.Default()
	configFile string
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Cartridge experience replay service",
	Long: `Replay service that stores transitions from actors and serves
prioritized or uniform training batches to learners.

Settings can be passed as flags, REPLAY_* environment variables
(e.g. REPLAY_CAPACITY) or a config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the replay gRPC and admin HTTP servers",
	RunE:  runServe,
}

var pushCmd = &cobra.Command{
	Use:   "push [file]",
	Short: "Push JSON-lines transitions from a file or stdin to a replay service",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPush,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Listeners
	serveCmd.Flags().String("grpc-addr", cfg.GRPCAddr, "gRPC listen address")
	serveCmd.Flags().String("http-addr", cfg.HTTPAddr, "Admin HTTP listen address (empty disables)")

	// Buffer
	serveCmd.Flags().Int("capacity", cfg.Capacity, "Maximum number of stored transitions")
	serveCmd.Flags().Bool("prioritized", cfg.Prioritized, "Use prioritized instead of uniform replay")
	serveCmd.Flags().Float64("alpha", cfg.Alpha, "Priority exponent")
	serveCmd.Flags().Float64("beta", cfg.Beta, "Importance-sampling exponent")
	serveCmd.Flags().Int64("seed", cfg.Seed, "Sampling seed (0 seeds from the clock)")
	serveCmd.Flags().Int("max-sample-size", cfg.MaxSampleSize, "Largest batch a Sample call may request")

	// Checkpoints
	serveCmd.Flags().String("checkpoint-path", cfg.CheckpointPath, "SQLite checkpoint database (empty disables)")
	serveCmd.Flags().Duration("checkpoint-interval", cfg.CheckpointInterval, "Interval between scheduled checkpoints (0 disables)")
	serveCmd.Flags().Int("checkpoint-keep", cfg.CheckpointKeep, "Checkpoints retained after each scheduled save (0 keeps all)")
	serveCmd.Flags().Bool("restore", cfg.Restore, "Restore the latest checkpoint on start")

	// Events
	serveCmd.Flags().String("nats-url", cfg.NATSURL, "NATS server URL (empty disables events)")
	serveCmd.Flags().String("nats-subject", cfg.NATSSubject, "NATS subject prefix")

	serveCmd.Flags().Duration("shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	// Push client
	pushCmd.Flags().String("replay-addr", cfg.ReplayAddr, "Replay service address")
	pushCmd.Flags().Int("batch-size", cfg.BatchSize, "Transitions per Push RPC")
	pushCmd.Flags().Duration("flush-interval", cfg.FlushInterval, "Interval to flush partial batches")

	rootCmd.AddCommand(serveCmd, pushCmd)
}

// loadConfig layers defaults, config file, environment and flags into cfg.
func loadConfig(cmd *cobra.Command) error {
	bind := func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)

	v.SetEnvPrefix("REPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
