package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/minecraft"
	"github.com/craftwatch/statusbot/pkg/domain/telegram"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// failureReply is sent when a command handler fails
const failureReply = "Could not reach the server status service, try again later."

// HandleUpdate runs the handler of every known command in u, once each and
// in name order, and replies to the chat. Group chats are answered
// silently. Handler failures are answered with a short apology and are not
// returned; only delivery failures are.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) error {
	ctx, span := b.tracer.Start(ctx, "bot.HandleUpdate",
		trace.WithAttributes(attribute.Int64("telegram.update_id", u.UpdateID)),
	)
	defer span.End()

	in := telegram.NewIncoming(u)
	b.metrics.UpdateReceived()

	names := in.CommandNames()
	if len(names) == 0 {
		return nil
	}

	logger := b.logger.With().
		Int64("update_id", in.UpdateID).
		Int64("chat_id", in.ChatID()).
		Int64("from_id", in.FromID()).
		Strs("commands", names).
		Logger()
	logger.Info().Msg("Handling commands")

	var errs []error
	for _, name := range names {
		cmd, ok := b.lookup(name)
		if !ok {
			logger.Debug().Str("command", name).Msg("Ignoring unknown command")
			continue
		}

		reply, err := b.runCommand(ctx, cmd, in)
		b.metrics.CommandHandled(name, err)
		if err != nil {
			logger.Error().Err(err).Str("command", name).Msg("Command failed")
			reply = failureReply
		}
		if reply == "" {
			continue
		}

		if _, err := b.SendMessage(ctx, in.ChatID(), reply, in.IsFromGroup()); err != nil {
			errs = append(errs, fmt.Errorf("reply to %s: %w", name, err))
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reply failed")
		return err
	}
	return nil
}

func (b *Bot) runCommand(ctx context.Context, cmd command, in telegram.Incoming) (reply string, err error) {
	ctx, span := b.tracer.Start(ctx, "bot.command",
		trace.WithAttributes(attribute.String("bot.command", cmd.name)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.opts.CommandTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeCommandExecutionError, errDomain,
				fmt.Sprintf("%s: %v", cmd.name, r), errHandlerPanic)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	reply, err = cmd.handler(ctx, in)
	if err != nil {
		return "", errors.New(errors.CodeCommandExecutionError, errDomain, cmd.name+" failed", err)
	}
	return reply, nil
}

func (b *Bot) checkStatus(ctx context.Context, _ telegram.Incoming) (string, error) {
	status, err := b.status.Status(ctx, b.opts.ServerAddress)
	if err != nil {
		return "", err
	}
	return minecraft.Render(status), nil
}

func (b *Bot) help(ctx context.Context, _ telegram.Incoming) (string, error) {
	var sb strings.Builder
	sb.WriteString("I report the status of ")
	sb.WriteString(telegram.EscapeMarkdown(b.opts.ServerAddress))
	sb.WriteString(".\nAvailable commands:")
	for _, c := range b.Commands() {
		sb.WriteString("\n")
		sb.WriteString(telegram.EscapeMarkdown(c[0]))
		sb.WriteString(" - ")
		sb.WriteString(telegram.EscapeMarkdown(c[1]))
	}
	return sb.String(), nil
}
