package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tridinhbui/finpartner-ai/internal/assistant"
	"github.com/tridinhbui/finpartner-ai/internal/config"
	"github.com/tridinhbui/finpartner-ai/internal/controller"
	"github.com/tridinhbui/finpartner-ai/internal/document"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
	"github.com/tridinhbui/finpartner-ai/internal/server"
	"github.com/tridinhbui/finpartner-ai/internal/storage/blobstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/cloudstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/localstore"
	"github.com/tridinhbui/finpartner-ai/internal/storage/threadsync"
)

const version = "0.3.1"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "finpartner",
		Short: "Financial document analysis workspace",
		Long:  "FinPartner AI hosts chat threads with a synchronized analysis workspace:\ncharts, tables, and document previews extracted from financial filings.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd(), configCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error: ")+err.Error())
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the workspace API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "bind address")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	return cmd
}

func runServe(cfg config.Config) error {
	logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	logger := logging.NewComponentLogger("Main")

	local, err := localstore.New(cfg.Storage.LocalDir, cfg.Storage.LocalCapacity)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}

	var cloud cloudstore.Store
	if cfg.Storage.RemoteURL != "" {
		cloud = cloudstore.New(cfg.Storage.RemoteURL, cfg.Storage.RemoteAPIKey, cfg.Storage.RemoteTimeout())
		logger.Info("Remote thread sync enabled: %s", cfg.Storage.RemoteURL)
	} else {
		logger.Info("Remote thread sync disabled, local persistence only")
	}

	client := assistant.NewGeminiClient(assistant.Config{
		APIKey:      cfg.Assistant.APIKey,
		BaseURL:     cfg.Assistant.BaseURL,
		Model:       cfg.Assistant.Model,
		Temperature: cfg.Assistant.Temperature,
		Timeout:     cfg.Assistant.Timeout(),
	})

	docs := document.NewManager(blobstore.NewRegistry(), logging.NewComponentLogger("Document"))
	hub := server.NewHub(logging.NewComponentLogger("Hub"))
	ctrl := controller.New(docs, client, threadsync.New(local, cloud), hub.BroadcastEvent)
	ctrl.Start(context.Background())

	srv := server.New(ctrl, hub, server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		Debug:        cfg.Server.Debug,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, logging.NewComponentLogger("Server"))

	fmt.Printf("%s FinPartner AI %s\n", bold("▲"), version)
	fmt.Printf("%s http://%s:%d\n", green("Listening on"), cfg.Server.Host, cfg.Server.Port)
	if cfg.Assistant.APIKey == "" {
		fmt.Println(yellow("Warning: no assistant API key configured; set FINPARTNER_ASSISTANT_API_KEY"))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		fmt.Printf("\n%s %v, shutting down\n", yellow("Received"), sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Println(green("Server stopped"))
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				path = filepath.Join(home, ".finpartner", "finpartner.yaml")
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", green("Wrote"), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("server:    %s:%d (cors=%v)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.EnableCORS)
			fmt.Printf("assistant: model=%s temperature=%.2f\n", cfg.Assistant.Model, cfg.Assistant.Temperature)
			fmt.Printf("storage:   local=%s remote=%s\n", cfg.Storage.LocalDir, orNone(cfg.Storage.RemoteURL))
			fmt.Printf("logging:   level=%s\n", cfg.Logging.Level)
			return nil
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("finpartner %s\n", version)
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
