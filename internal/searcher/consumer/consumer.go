// Package consumer serves similarity commands arriving on a Kafka topic and
// publishes each outcome to the results topic.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/logger"
)

// CommandMessage is the value of a command topic message. A plain-text
// value is treated as the command itself.
type CommandMessage struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// ResultMessage is published for every consumed command.
type ResultMessage struct {
	ID      string           `json:"id"`
	Command string           `json:"command"`
	Result  *executor.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Kind    string           `json:"kind"`
	Cache   string           `json:"cache,omitempty"`
}

// Publisher is the subset of kafka.Producer used for results.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// HandleMessage returns a MessageHandler that runs each command through d
// and publishes its ResultMessage. Command failures are published, not
// retried; only a failed publish leaves the message uncommitted.
func HandleMessage(d *dispatch.Dispatcher, results Publisher) kafka.MessageHandler {
	log := slog.Default().With("component", "command-consumer")
	return func(ctx context.Context, key, value []byte) error {
		msg := decode(key, value)
		if msg.ID != "" {
			ctx = logger.WithRequestID(ctx, msg.ID)
		}

		res, tier, err := d.DispatchString(ctx, msg.Command, analytics.SourceKafka)
		out := ResultMessage{
			ID:      msg.ID,
			Command: executor.Redact(msg.Command),
			Result:  res,
			Kind:    apperrors.Kind(err),
			Cache:   string(tier),
		}
		if err != nil {
			out.Error = err.Error()
			log.Info("command failed", "id", msg.ID, "kind", out.Kind, "error", err)
		}

		if err := results.Publish(ctx, kafka.Event{Key: msg.ID, Value: out}); err != nil {
			return fmt.Errorf("publishing result of %q: %w", msg.ID, err)
		}
		return nil
	}
}

func decode(key, value []byte) CommandMessage {
	var msg CommandMessage
	trimmed := strings.TrimSpace(string(value))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(value, &msg) == nil && msg.Command != "" {
		if msg.ID == "" {
			msg.ID = string(key)
		}
		return msg
	}
	return CommandMessage{ID: string(key), Command: trimmed}
}
