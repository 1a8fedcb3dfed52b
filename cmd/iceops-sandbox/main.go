// Command iceops-sandbox serves a local in-memory stand-in for the ice-plant
// operations API so the SDK can be developed and demoed without a plant
// backend.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iceops/iceops_sdk_go/internal/devseed"
	"github.com/iceops/iceops_sdk_go/internal/sandbox"
)

type serveConfig struct {
	Addr       string            `yaml:"addr"`
	Secret     string            `yaml:"secret"`
	TokenTTL   time.Duration     `yaml:"token_ttl"`
	Users      map[string]string `yaml:"users"`
	Latency    time.Duration     `yaml:"latency"`
	FailRate   float64           `yaml:"fail_rate"`
	FailStatus int               `yaml:"fail_status"`
	Seed       string            `yaml:"seed"`
}

func main() {
	// A .env next to the binary is convenient during development; absence is
	// not an error.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "iceops-sandbox",
		Short:         "Local sandbox for the ice-plant operations API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cfg := serveConfig{
		Addr:       ":8787",
		TokenTTL:   12 * time.Hour,
		FailStatus: http.StatusInternalServerError,
	}
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sandbox API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := loadConfigFile(configPath, &cfg, cmd); err != nil {
					return err
				}
			}
			return serve(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.StringVar(&cfg.Secret, "secret", cfg.Secret, "token signing secret (random when empty)")
	flags.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "session token validity")
	flags.DurationVar(&cfg.Latency, "latency", cfg.Latency, "artificial latency injected per request")
	flags.Float64Var(&cfg.FailRate, "fail-rate", cfg.FailRate, "fraction of requests failed at random")
	flags.IntVar(&cfg.FailStatus, "fail-status", cfg.FailStatus, "HTTP status for injected failures")
	flags.StringVar(&cfg.Seed, "seed", cfg.Seed, "path to a JSON or YAML seed file")
	flags.StringVar(&configPath, "config", "", "path to a YAML config file (flags take precedence)")

	return cmd
}

// loadConfigFile merges file values under explicitly set flags.
func loadConfigFile(path string, cfg *serveConfig, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	fileCfg := serveConfig{}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("addr") && fileCfg.Addr != "" {
		cfg.Addr = fileCfg.Addr
	}
	if !flags.Changed("secret") && fileCfg.Secret != "" {
		cfg.Secret = fileCfg.Secret
	}
	if !flags.Changed("token-ttl") && fileCfg.TokenTTL > 0 {
		cfg.TokenTTL = fileCfg.TokenTTL
	}
	if !flags.Changed("latency") && fileCfg.Latency > 0 {
		cfg.Latency = fileCfg.Latency
	}
	if !flags.Changed("fail-rate") && fileCfg.FailRate > 0 {
		cfg.FailRate = fileCfg.FailRate
	}
	if !flags.Changed("fail-status") && fileCfg.FailStatus > 0 {
		cfg.FailStatus = fileCfg.FailStatus
	}
	if !flags.Changed("seed") && fileCfg.Seed != "" {
		cfg.Seed = fileCfg.Seed
	}
	if len(fileCfg.Users) > 0 {
		cfg.Users = fileCfg.Users
	}
	return nil
}

func serve(cfg serveConfig) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	server := sandbox.New(sandbox.Config{
		Secret:     cfg.Secret,
		TokenTTL:   cfg.TokenTTL,
		Users:      cfg.Users,
		Latency:    cfg.Latency,
		FailRate:   cfg.FailRate,
		FailStatus: cfg.FailStatus,
	})

	if cfg.Seed != "" {
		seed, err := devseed.Load(cfg.Seed)
		if err != nil {
			return err
		}
		server.Seed(seed)
		logger.Info().
			Int("inventory", len(seed.Inventory)).
			Int("maintenance", len(seed.Maintenance)).
			Int("groups", len(seed.Groups)).
			Msg("seed applied")
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Dur("latency", cfg.Latency).
		Float64("fail_rate", cfg.FailRate).
		Msg("sandbox listening")

	return http.ListenAndServe(cfg.Addr, logRequests(logger, server.Handler()))
}

func logRequests(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
