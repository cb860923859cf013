package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat-widget/internal/chat"
	"chat-widget/internal/modes"
	"chat-widget/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the browser widget on WIDGET_PORT",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("")
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := server.NewServer(a.cfg, a.newClient, a.log)
		srv := &http.Server{
			Addr:              ":" + a.cfg.Port,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.log.Info("widget listening", zap.String("addr", srv.Addr), zap.String("backend", a.cfg.APIBaseURL))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

var sendMode string

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message and print the reply",
	Long: `Send one message and print the reply.

When the backend cannot answer, the fallback reply is printed and the
command exits non-zero.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("")
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		c := chat.New(a.backend, chat.WithLogger(a.log), chat.WithCatalog(a.catalog))
		if sendMode != "" {
			m, err := modes.Parse(sendMode)
			if err != nil {
				return err
			}
			c.SetMode(m, "")
		}
		reply, err := c.Send(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if reply == nil {
			return errors.New("message is empty")
		}
		fmt.Fprintln(cmd.OutOrStdout(), chat.FormatMessage(*reply))
		if reply.Content == chat.FallbackReply {
			// Scripts need a non-zero exit; the cause is in the log.
			return errors.New("chat backend request failed")
		}
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the chat backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("")
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		status, err := chat.New(a.backend, chat.WithLogger(a.log)).Ping(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backend %s: %s\n", a.cfg.HealthURL, status)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [session id]",
	Short: "Print what the backend has stored for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("")
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		conv, err := a.backend.Conversation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, m := range conv.Messages {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-9s %s\n", m.Timestamp, m.Role, m.Content)
		}
		return nil
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the selectable modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("")
		if err != nil {
			return err
		}
		for _, e := range a.catalog.Entries() {
			marker := " "
			if e.Mode == modes.Default {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %s\n", marker, e.Mode, e.Label)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendMode, "mode", "", "active mode for this message")
}
