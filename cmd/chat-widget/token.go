package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"chat-widget/internal/config"
	"chat-widget/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the bearer token sent to the chat backend",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Save a token to CHAT_API_TOKEN_FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		tok := strings.TrimSpace(args[0])
		if err := store.NewTokenFile(cfg.TokenFile).Write(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", cfg.TokenFile)
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := store.NewTokenFile(cfg.TokenFile).Clear(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "token removed")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd)
}
