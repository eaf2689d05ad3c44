// Package cli wires the mmbot command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mmbot/internal/app"
	"mmbot/internal/config"
	"mmbot/internal/logger"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	debug      bool
}

// NewRootCmd 构建命令树；不带子命令时等同于 serve。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "mmbot",
		Short:         "mmbot - single-symbol futures market maker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !config.LoadDotEnv(envFiles(opts.envFile)...) && opts.envFile != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: env file %s not loaded\n", opts.envFile)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $MMBOT_CONFIG or configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading config (default .env)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "force debug log level")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func envFiles(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}
	return nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ConfigPath(opts.configPath))
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mmbot %s\n", version)
		},
	}
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	masked := *cfg
	masked.Exchange.APIKey = mask(masked.Exchange.APIKey)
	masked.Exchange.APISecret = mask(masked.Exchange.APISecret)
	masked.Notify.Telegram.BotToken = mask(masked.Notify.Telegram.BotToken)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func runServe(parent context.Context, opts *rootOptions) error {
	path := config.ConfigPath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetFormat(cfg.App.LogFormat, os.Stdout)
	logFile, err := logger.TeeFile(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("init log file: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	if opts.debug {
		logger.SetLevel("debug")
	}
	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		return fmt.Errorf("API keys not set: configure exchange.api_key/api_secret or %s/%s", config.EnvAPIKey, config.EnvAPISecret)
	}
	logger.Infof("✓ config loaded from %s (env=%s, symbol=%s)", path, cfg.App.Env, cfg.Trading.Symbol)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg, app.WithConfigPath(path))
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := a.Run(ctx); err != nil {
		logger.Errorf("mmbot exited: %v", err)
		return err
	}
	logger.Infof("mmbot stopped")
	return nil
}
