package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

func chatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the companion",
		Long: `Send one message, or start an interactive session when no message is given.

Examples:
  kindred chat "hey, how's it going?"
  kindred chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Disable()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg, dbPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(args) > 0 {
				return processOnce(ctx, rt, userID, strings.Join(args, " "))
			}
			return interactiveChat(ctx, rt, userID)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user id for session and memory scoping")
	return cmd
}

func processOnce(ctx context.Context, rt *runtime, userID, content string) error {
	result, err := rt.engine.Process(ctx, types.Message{
		Content:   content,
		UserID:    userID,
		ChatID:    userID,
		Role:      "user",
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	printResult(rt, result)
	return nil
}

func interactiveChat(ctx context.Context, rt *runtime, userID string) error {
	fmt.Printf("%s is listening. Type /quit to leave.\n\n", rt.cfg.Bot.Name)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		}

		if err := processOnce(ctx, rt, userID, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func printResult(rt *runtime, result *types.OrchestrationResult) {
	parts := result.ReplyParts
	if len(parts) == 0 {
		parts = []string{result.FinalResponse}
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		fmt.Printf("%s: %s\n", rt.cfg.Bot.Name, part)
	}
}
