package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-widget/internal/backend"
	"chat-widget/internal/chat"
	"chat-widget/internal/config"
	"chat-widget/internal/logging"
	"chat-widget/internal/modes"
	"chat-widget/internal/store"
	"chat-widget/internal/tui"
)

// defaultTUILog keeps log output off the terminal the widget draws on.
const defaultTUILog = "logs/chat-widget.log"

var (
	// Global flags
	baseURL  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chat-widget",
	Short: "Chat with the assistant backend from the terminal or a browser",
	Long: `chat-widget is a thin client for the assistant chat backend.

Run without arguments to open the terminal widget. Use "serve" to host the
browser widget, or "send" to post a single message from a script.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(defaultTUILog)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := tea.NewProgram(tui.New(ctx, a.newClient()), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("terminal widget: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "chat backend base URL (overrides CHAT_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.AddCommand(serveCmd, sendCmd, pingCmd, historyCmd, modesCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs to build chat clients.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	catalog *modes.Catalog
	backend *backend.Client
}

// setup loads configuration, applies flag overrides and builds the shared
// dependencies. fallbackLog is used when LOG_FILE is unset.
func setup(fallbackLog string) (*app, error) {
	cfg := config.Load()
	if baseURL != "" {
		cfg.APIBaseURL = baseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.LogFile == "" {
		cfg.LogFile = fallbackLog
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("problem", w))
	}
	if cfg.RequestTimeout == 0 {
		logger.Info("no request timeout configured; a hung backend keeps input disabled until interrupted")
	}

	catalog, err := modes.LoadCatalog(cfg.ModesFile)
	if err != nil {
		return nil, fmt.Errorf("load modes: %w", err)
	}

	// Token priority: environment first, then the token file.
	if cfg.APIToken == "" && cfg.TokenFile != "" {
		tok, err := store.NewTokenFile(cfg.TokenFile).Read()
		if err != nil {
			logger.Warn("ignoring unreadable token file", zap.String("path", cfg.TokenFile), zap.Error(err))
		} else if tok != nil {
			cfg.APIToken = tok.AccessToken
		}
	}

	be := backend.New(backend.Options{
		BaseURL:   cfg.APIBaseURL,
		HealthURL: cfg.HealthURL,
		Token:     cfg.APIToken,
		Timeout:   cfg.RequestTimeout,
	})
	logger.Debug("chat backend configured", zap.String("base_url", cfg.APIBaseURL), zap.Bool("auth", cfg.APIToken != ""))

	return &app{cfg: cfg, log: logger, catalog: catalog, backend: be}, nil
}

func (a *app) newClient() *chat.Client {
	c := chat.New(a.backend, chat.WithLogger(a.log), chat.WithCatalog(a.catalog))
	if a.cfg.Greeting {
		c.Greet()
	}
	return c
}
