package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kindredloop/kindred/internal/logging"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect stored memories",
	}
	cmd.AddCommand(memoryListCmd())
	return cmd
}

func memoryListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories stored for a user",
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

			records, err := rt.store.MemoriesByOwner(ctx, userID, cfg.Bot.ID)
			if err != nil {
				return fmt.Errorf("failed to list memories: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No memories stored.")
				return nil
			}
			for _, rec := range records {
				fmt.Printf("%s  [%s/%s]  %s  (recalled %d times)\n",
					rec.CreatedAt.Format("2006-01-02"), rec.EventType, rec.ImportanceLevel, rec.Summary, rec.AccessCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "user id to list memories for")
	return cmd
}
