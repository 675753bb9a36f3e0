package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lhdbsbz/canvas/internal/agent"
	"github.com/lhdbsbz/canvas/internal/augment"
	"github.com/lhdbsbz/canvas/internal/config"
	"github.com/lhdbsbz/canvas/internal/gateway"
	"github.com/lhdbsbz/canvas/internal/llm"
	"github.com/lhdbsbz/canvas/internal/logging"
	"github.com/lhdbsbz/canvas/internal/pdf"
	"github.com/lhdbsbz/canvas/internal/state"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "canvas",
		Short:         "Canvas - prescription canvas gateway",
		Long:          "Canvas hosts the prescription canvas: it bridges messages from the parent app, keeps the shared store and builds augmented prompts.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CANVAS_HOME/config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the gateway server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version info",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "canvas v%s\n", version)
			},
		},
		newInitCommand(&configPath),
		newExportCommand(&configPath),
	)
	return root
}

func newInitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file from the built-in example",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ResolveConfigPath(*configPath)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists: %s", path)
			}
			if err := config.CreateFromExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", path)
			return nil
		},
	}
}

func newExportCommand(configPath *string) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a Markdown prescription to PDF",
		Long:  "Render a Markdown prescription to PDF. Reads stdin when --in is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if in == "" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(in)
			}
			if err != nil {
				return fmt.Errorf("read markdown: %w", err)
			}
			cfg := loadConfig(*configPath)
			if err := pdf.New(pdfOptions(cfg)).WriteFile(out, string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Markdown input file")
	cmd.Flags().StringVar(&out, "out", pdf.FileName, "PDF output file")
	return cmd
}

// loadConfig reads .env files and the config, falling back to defaults.
func loadConfig(flagPath string) *config.Config {
	if err := config.LoadDotEnv(config.EnvFiles()...); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	path := config.ResolveConfigPath(flagPath)
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", path, "error", err)
		cfg = config.DefaultConfig()
	}
	return cfg
}

func serve(ctx context.Context, flagPath string) error {
	cfg := loadConfig(flagPath)
	config.Set(cfg)
	logger := logging.Setup(cfg.IsProduction(), cfg.Log.Level)
	logger.Info("canvas starting", "version", version, "mode", cfg.Mode, "home", config.Home())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	var retriever augment.Retriever
	if cfg.Context.BaseURL != "" {
		retriever = augment.NewHTTPRetriever(cfg.Context.BaseURL, logger)
	} else {
		logger.Warn("context.baseURL not set, prompts are built without retrieved context")
	}
	augmenter := augment.New(store, retriever, augment.Options{
		Limit:   cfg.Context.Limit,
		Timeout: cfg.Context.Timeout,
		Logger:  logger,
	})

	var prescriber *agent.Prescriber
	if cfg.LLM.Enabled() {
		prescriber = &agent.Prescriber{
			Client:    llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL),
			Augmenter: augmenter,
			State:     store,
			Model:     cfg.LLM.Model,
			Fallbacks: cfg.LLM.Fallbacks,
			Logger:    logger,
		}
	} else {
		logger.Info("llm not configured, prescriptions endpoint disabled")
	}

	srv := gateway.NewServer(cfg, gateway.Deps{
		Store:      store,
		Augmenter:  augmenter,
		Prescriber: prescriber,
		Exporter:   pdf.New(pdfOptions(cfg)),
	})

	config.RegisterOnReload(srv.SetConfig)
	if path := config.ResolveConfigPath(flagPath); fileExists(path) {
		go config.Watch(ctx, path)
	}

	return srv.Start(ctx)
}

// openStore builds the persister selected by the store driver and restores the last snapshot.
func openStore(ctx context.Context, cfg config.StoreConfig) (*state.Store, func(), error) {
	var (
		persister state.Persister
		closer    = func() {}
	)
	switch cfg.Driver {
	case "", config.StoreDriverFile:
		dir := cfg.Dir
		if dir == "" {
			dir = config.StoreDir()
		}
		persister = state.NewFilePersister(dir, cfg.Name)
	case config.StoreDriverRedis:
		client, err := state.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		persister = state.NewRedisPersister(client, cfg.Name)
		closer = func() { client.Close() }
	case config.StoreDriverMemory:
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	store := state.NewStore(persister)
	if err := store.Open(ctx); err != nil {
		// A corrupt or unreachable snapshot starts the canvas empty.
		slog.Warn("failed to restore canvas store", "driver", cfg.Driver, "error", err)
	}
	return store, closer, nil
}

func pdfOptions(cfg *config.Config) pdf.Options {
	opts := pdf.DefaultOptions()
	if cfg.PDF.FontFamily != "" {
		opts.FontFamily = cfg.PDF.FontFamily
	}
	if cfg.PDF.FontSize > 0 {
		opts.FontSize = cfg.PDF.FontSize
	}
	if cfg.PDF.Left > 0 {
		opts.Left = cfg.PDF.Left
	}
	if cfg.PDF.Top > 0 {
		opts.Top = cfg.PDF.Top
	}
	if cfg.PDF.Width > 0 {
		opts.Width = cfg.PDF.Width
	}
	return opts
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
