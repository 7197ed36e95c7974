// Package botcmd implements the `bot` subcommand: the Slack Socket Mode
// event loop feeding the task lifecycle controller.
package botcmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/quailyquaily/threadkeeper/internal/configutil"
	"github.com/quailyquaily/threadkeeper/internal/healthcheck"
	"github.com/quailyquaily/threadkeeper/internal/logutil"
	"github.com/quailyquaily/threadkeeper/internal/notify"
	"github.com/quailyquaily/threadkeeper/internal/reminder"
	"github.com/quailyquaily/threadkeeper/internal/slackapi"
	"github.com/quailyquaily/threadkeeper/internal/task"
	"github.com/quailyquaily/threadkeeper/internal/tracker"
	"github.com/quailyquaily/threadkeeper/internal/workspace"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the pending-thread tracker bot with Socket Mode",
		RunE:  runBot,
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	cmd.Flags().StringArray("slack-allowed-team-id", nil, "Allowed Slack team id(s). If empty, defaults to the bot's home team.")
	cmd.Flags().StringArray("slack-allowed-channel-id", nil, "Allowed Slack channel id(s). If empty, allows all channels in allowed teams.")
	cmd.Flags().String("redis-url", "", "Redis connection URL for the task store. Empty runs with an in-memory store.")
	cmd.Flags().String("redis-hash-key", task.DefaultHashKey, "Redis hash holding pending tasks.")
	cmd.Flags().Int("max-concurrency", 4, "Max number of inbound events handled concurrently.")
	cmd.Flags().String("health-listen", "", "Optional listen address for the /healthz endpoint.")

	return cmd
}

func runBot(cmd *cobra.Command, args []string) error {
	botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
	if botToken == "" {
		return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or THREADKEEPER_SLACK_BOT_TOKEN)")
	}
	appToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token"))
	if appToken == "" {
		return fmt.Errorf("missing slack.app_token (set via --slack-app-token or THREADKEEPER_SLACK_APP_TOKEN)")
	}

	allowedTeams := toAllowlist(configutil.FlagOrViperStringArray(cmd, "slack-allowed-team-id", "slack.allowed_team_ids"))
	allowedChannels := toAllowlist(configutil.FlagOrViperStringArray(cmd, "slack-allowed-channel-id", "slack.allowed_channel_ids"))

	logger, err := logutil.FromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	api := slackapi.New(httpClient, "https://slack.com/api", botToken, appToken)
	auth, err := api.AuthTest(cmd.Context())
	if err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}
	botUserID := strings.TrimSpace(auth.UserID)
	if botUserID == "" {
		return fmt.Errorf("slack auth.test returned empty user_id")
	}
	if len(allowedTeams) == 0 && strings.TrimSpace(auth.TeamID) != "" {
		allowedTeams[strings.TrimSpace(auth.TeamID)] = true
	}

	store, storeKind, err := storeFromConfig(cmd, logger)
	if err != nil {
		return err
	}

	domain, err := workspace.NewDomainResolver(api.TeamDomain)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(notify.DispatcherOptions{
		OpenConversation: api.OpenConversation,
		PostMessage:      api.PostMessage,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	reminders, err := reminder.New(reminder.Options{
		Store:       store,
		Domain:      domain.Get,
		SendDirect:  dispatcher.SendDirect,
		Logger:      logger,
		BaseContext: cmd.Context(),
	})
	if err != nil {
		return err
	}
	controller, err := tracker.New(tracker.Options{
		Store:         store,
		Replier:       dispatcher,
		Broadcaster:   dispatcher,
		Reminders:     reminders,
		Domain:        domain.Get,
		FetchRootText: api.FetchThreadRootText,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	maxConc := configutil.FlagOrViperInt(cmd, "max-concurrency", "bot.max_concurrency")
	if maxConc <= 0 {
		maxConc = 4
	}
	sem := make(chan struct{}, maxConc)

	healthListen := healthcheck.NormalizeListen(configutil.FlagOrViperString(cmd, "health-listen", "health.listen"))
	if healthListen != "" {
		healthServer, err := healthcheck.StartServer(cmd.Context(), logger, healthListen, "bot")
		if err != nil {
			logger.Warn("health_server_start_error", "addr", healthListen, "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = healthServer.Shutdown(shutdownCtx)
				cancel()
			}()
		}
	}

	logger.Info("bot_start",
		"bot_user_id", botUserID,
		"store", storeKind,
		"allowed_team_ids", len(allowedTeams),
		"allowed_channel_ids", len(allowedChannels),
		"max_concurrency", maxConc,
	)

	handleEvent := func(event inboundEvent) {
		sem <- struct{}{}
		defer func() { <-sem }()
		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		if event.TopicChanged {
			controller.HandleTopicChange(ctx, event.ChannelID, event.Topic)
			return
		}
		controller.HandleMessage(ctx, tracker.Event{
			ChannelID: event.ChannelID,
			UserID:    event.UserID,
			MessageTS: event.MessageTS,
			ThreadTS:  event.ThreadTS,
			Text:      event.Text,
		})
	}

	for {
		if cmd.Context().Err() != nil {
			logger.Info("bot_stop", "reason", "context_canceled")
			reminders.Wait()
			return nil
		}
		conn, err := api.ConnectSocket(cmd.Context())
		if err != nil {
			if cmd.Context().Err() != nil {
				logger.Info("bot_stop", "reason", "context_canceled")
				reminders.Wait()
				return nil
			}
			logger.Warn("slack_socket_connect_error", "error", err.Error())
			if err := sleepWithContext(cmd.Context(), 2*time.Second); err != nil {
				return nil
			}
			continue
		}
		logger.Info("slack_socket_connected")
		readErr := consumeSocket(cmd.Context(), conn, func(envelope socketEnvelope) error {
			event, ok, err := parseInboundEvent(envelope, botUserID)
			if err != nil {
				logger.Warn("slack_event_parse_error", "error", err.Error())
				return nil
			}
			if !ok {
				return nil
			}
			if len(allowedTeams) > 0 && event.TeamID != "" && !allowedTeams[event.TeamID] {
				return nil
			}
			if len(allowedChannels) > 0 && !allowedChannels[event.ChannelID] {
				return nil
			}
			go handleEvent(event)
			return nil
		})
		_ = conn.Close()
		if readErr != nil && !errors.Is(readErr, context.Canceled) && !errors.Is(readErr, context.DeadlineExceeded) {
			logger.Warn("slack_socket_read_error", "error", readErr.Error())
		}
	}
}

func storeFromConfig(cmd *cobra.Command, logger *slog.Logger) (task.Store, string, error) {
	redisURL := strings.TrimSpace(configutil.FlagOrViperString(cmd, "redis-url", "redis.url"))
	if redisURL == "" {
		logger.Warn("task_store_in_memory", "hint", "set redis.url for durable tasks")
		return task.NewMemoryStore(), "memory", nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid redis.url: %w", err)
	}
	hashKey := strings.TrimSpace(configutil.FlagOrViperString(cmd, "redis-hash-key", "redis.hash_key"))
	store, err := task.NewRedisStore(redis.NewClient(redisOpts), hashKey, logger)
	if err != nil {
		return nil, "", err
	}
	return store, "redis", nil
}

func consumeSocket(ctx context.Context, conn *websocket.Conn, onEnvelope func(envelope socketEnvelope) error) error {
	if conn == nil {
		return fmt.Errorf("slack websocket connection is nil")
	}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		if strings.TrimSpace(envelope.EnvelopeID) != "" {
			if err := conn.WriteJSON(map[string]string{"envelope_id": envelope.EnvelopeID}); err != nil {
				return err
			}
		}
		if onEnvelope == nil {
			continue
		}
		if err := onEnvelope(envelope); err != nil {
			return err
		}
	}
}

func toAllowlist(items []string) map[string]bool {
	out := make(map[string]bool)
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
