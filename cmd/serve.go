package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imelnik/taskdesk/internal/bot"
	"github.com/imelnik/taskdesk/internal/chat"
	"github.com/imelnik/taskdesk/internal/daemon"
	"github.com/imelnik/taskdesk/internal/notify"
	"github.com/imelnik/taskdesk/internal/remind"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot in the foreground.

The bot long-polls Telegram for updates, drives the admin and
programmer dialogs, posts closed tasks to the archive chat and sends
scheduled reminders. A PID file guards against a second instance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveRun() error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	token := viper.GetString("bot_token")
	if token == "" {
		return fmt.Errorf("bot_token is not set (run 'taskdesk config init' or set TASKDESK_BOT_TOKEN)")
	}

	pidFile := daemon.NewPIDFile(viper.GetString("pid_path"))
	if err := pidFile.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			log.Warn().Err(err).Msg("releasing pid file")
		}
	}()

	st, err := getStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessionTTL := viper.GetDuration("session_ttl")
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	tg, err := chat.NewTelegram(token, log)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}

	sessions := bot.NewSessionStore()
	notifier := notify.New(tg, st, viper.GetInt64("archive_chat_id"), log)
	dispatcher := bot.New(st, sessions, tg, notifier, bot.Config{Admins: adminIDs()}, log)
	sweeper := remind.New(st, tg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if err := sweeper.Schedule(ctx, c, viper.GetString("remind.morning"), viper.GetString("remind.evening")); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := c.AddFunc("@hourly", func() {
		if n := sessions.PurgeIdle(sessionTTL); n > 0 {
			log.Debug().Int("purged", n).Msg("discarded idle sessions")
		}
	}); err != nil {
		return fmt.Errorf("schedule session purge: %w", err)
	}
	c.Start()
	defer c.Stop()

	log.Info().
		Int64("archive_chat_id", viper.GetInt64("archive_chat_id")).
		Ints64("admins", adminIDs()).
		Msg("bot started")

	updates := tg.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case u, ok := <-updates:
			if !ok {
				log.Info().Msg("update stream closed")
				return nil
			}
			dispatcher.HandleUpdate(ctx, u)
		}
	}
}
