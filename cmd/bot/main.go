package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/repwatch/repwatch/internal/bot"
	"github.com/repwatch/repwatch/internal/redis"
	"github.com/repwatch/repwatch/internal/rep"
	"github.com/repwatch/repwatch/internal/rep/storage"
	"github.com/repwatch/repwatch/internal/setup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cmd := &cli.Command{
		Name:  "repwatch",
		Usage: "Discord reputation ledger bot",
		Action: func(ctx context.Context, _ *cli.Command) error {
			app, err := setup.InitializeApp()
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup()

			service := rep.NewService(app.Logger)

			// Restore the last snapshot before any Discord traffic arrives.
			client, err := app.RedisManager.GetClient(redis.SnapshotDBIndex)
			if err != nil {
				return fmt.Errorf("failed to connect to Redis: %w", err)
			}

			snapshotter := storage.NewSnapshotter(storage.NewRedisStore(client), app.Logger)

			state, err := snapshotter.Restore(ctx)
			if err != nil {
				return fmt.Errorf("failed to restore snapshot: %w", err)
			}
			service.LoadState(state)

			coalesce := time.Duration(app.Config.Bot.Rep.FlushCoalesceMS) * time.Millisecond
			flusher := storage.NewFlusher(snapshotter, service, coalesce, app.Logger)
			service.SetFlusher(flusher)
			flusher.Start()
			defer flusher.Stop()

			discordBot, err := bot.New(&app.Config.Bot.Discord, service, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to create bot: %w", err)
			}

			if err := discordBot.Start(ctx); err != nil {
				return fmt.Errorf("failed to start bot: %w", err)
			}

			app.Logger.Info("Bot started, waiting for interrupt signal")

			sc := make(chan os.Signal, 1)
			signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			<-sc

			// Close the gateway first so no new mutations race the final flush.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			discordBot.Close(shutdownCtx)

			return nil
		},
	}

	return cmd.Run(context.Background(), os.Args)
}
