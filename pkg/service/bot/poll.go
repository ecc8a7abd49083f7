package bot

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/telegram"
	"github.com/google/uuid"
)

// Run polls for updates until ctx is cancelled. It returns nil on
// cancellation and an error only when polling cannot continue, e.g. the bot
// token was rejected.
func (b *Bot) Run(ctx context.Context) error {
	offset, err := b.store.LoadOffset(ctx)
	if err != nil {
		return errors.New(errors.CodeIoError, errDomain, "failed to restore update offset", err)
	}
	b.mu.Lock()
	if offset > b.offset {
		b.offset = offset
	}
	b.mu.Unlock()

	b.logger.Info().
		Int64("offset", b.Offset()).
		Str("server", b.opts.ServerAddress).
		Msg("Polling for updates")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	if bo.InitialInterval > b.opts.MaxBackoff {
		bo.InitialInterval = b.opts.MaxBackoff
	}
	bo.MaxInterval = b.opts.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		if ctx.Err() != nil {
			return nil
		}

		pollID := uuid.NewString()
		updates, err := b.api.GetUpdates(ctx, b.Offset(), b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.IsCode(err, errors.CodeConfigurationInvalid) {
				return err
			}

			b.metrics.PollFailed()
			wait := bo.NextBackOff()
			if requested := errors.RetryDelay(err); requested > wait {
				wait = requested
			}
			b.logger.Warn().
				Err(err).
				Str("poll_id", pollID).
				Dur("retry_in", wait).
				Msg("Polling for updates failed")
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}
		bo.Reset()

		if len(updates) > 0 {
			b.logger.Debug().Str("poll_id", pollID).Int("updates", len(updates)).Msg("Received updates")
		}
		b.processBatch(ctx, updates)

		if !sleep(ctx, b.opts.PollInterval) {
			return nil
		}
	}
}

// processBatch handles updates in update_id order and acknowledges each one
// after it was handled.
func (b *Bot) processBatch(ctx context.Context, updates []telegram.Update) {
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].UpdateID < updates[j].UpdateID })

	for _, u := range updates {
		if u.UpdateID < b.Offset() {
			b.logger.Debug().Int64("update_id", u.UpdateID).Msg("Skipping acknowledged update")
			continue
		}
		if err := b.HandleUpdate(ctx, u); err != nil {
			b.logger.Error().Err(err).Int64("update_id", u.UpdateID).Msg("Failed to handle update")
		}
		b.advance(ctx, u.UpdateID+1)
	}
}

func (b *Bot) advance(ctx context.Context, next int64) {
	b.mu.Lock()
	if next <= b.offset {
		b.mu.Unlock()
		return
	}
	b.offset = next
	b.mu.Unlock()

	b.metrics.OffsetAdvanced(next)
	// store with a fresh context so a shutdown mid-batch still records progress
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.store.SaveOffset(saveCtx, next); err != nil {
		b.logger.Error().Err(err).Int64("offset", next).Msg("Failed to persist update offset")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
