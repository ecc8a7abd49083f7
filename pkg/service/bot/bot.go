// Package bot runs the long-poll loop: it fetches Telegram updates,
// dispatches the bot commands they carry and acknowledges each update by
// advancing a persisted offset.
package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/minecraft"
	"github.com/craftwatch/statusbot/pkg/domain/state"
	"github.com/craftwatch/statusbot/pkg/domain/telegram"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const errDomain = "bot"

// TelegramAPI is the subset of the Bot API the bot calls
type TelegramAPI interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) (telegram.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// StatusLookup fetches a Minecraft server status
type StatusLookup interface {
	Status(ctx context.Context, address string) (minecraft.Status, error)
}

// Metrics receives bot events
type Metrics interface {
	UpdateReceived()
	CommandHandled(command string, err error)
	PollFailed()
	OffsetAdvanced(offset int64)
}

// Handler answers a command; the returned text is sent back to the chat
type Handler func(ctx context.Context, in telegram.Incoming) (string, error)

// Options tunes the bot
type Options struct {
	ServerAddress  string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxBackoff     time.Duration
	CommandTimeout time.Duration
}

type command struct {
	name        string
	description string
	handler     Handler
}

// Bot is a Telegram status bot
type Bot struct {
	api     TelegramAPI
	status  StatusLookup
	store   state.Store
	opts    Options
	logger  zerolog.Logger
	metrics Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu       sync.RWMutex
	commands map[string]command
	offset   int64
}

// New creates a Bot with /check_status, /help and /start registered.
// metrics may be nil.
func New(api TelegramAPI, status StatusLookup, store state.Store, opts Options, logger zerolog.Logger, metrics Metrics) *Bot {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = time.Minute
	}

	b := &Bot{
		api:      api,
		status:   status,
		store:    store,
		opts:     opts,
		logger:   logger.With().Str("component", "bot").Logger(),
		metrics:  metrics,
		tracer:   otel.Tracer("github.com/craftwatch/statusbot/pkg/service/bot"),
		now:      time.Now,
		commands: make(map[string]command),
	}

	b.mustRegister("/check_status", "Show the Minecraft server status", b.checkStatus)
	b.mustRegister("/help", "List available commands", b.help)
	b.mustRegister("/start", "Introduce the bot", b.help)

	return b
}

// Register adds a command. Names must start with "/" and be unique.
func (b *Bot) Register(name, description string, h Handler) error {
	if !strings.HasPrefix(name, "/") || len(name) < 2 || strings.ContainsAny(name, " @") {
		return errors.New(errors.CodeInvalidParameter, errDomain, fmt.Sprintf("invalid command name %q", name), nil)
	}
	if h == nil {
		return errors.New(errors.CodeInvalidParameter, errDomain, fmt.Sprintf("command %s has no handler", name), nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.commands[name]; exists {
		return errors.New(errors.CodeCommandAlreadyExists, errDomain, fmt.Sprintf("command %s already registered", name), nil)
	}
	b.commands[name] = command{name: name, description: description, handler: h}
	return nil
}

func (b *Bot) mustRegister(name, description string, h Handler) {
	if err := b.Register(name, description, h); err != nil {
		panic(err)
	}
}

// Commands returns registered command names with descriptions, sorted
func (b *Bot) Commands() [][2]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([][2]string, 0, len(b.commands))
	for _, c := range b.commands {
		out = append(out, [2]string{c.name, c.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Offset returns the next update offset the bot will request
func (b *Bot) Offset() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offset
}

func (b *Bot) lookup(name string) (command, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.commands[name]
	return c, ok
}

type nopMetrics struct{}

func (nopMetrics) UpdateReceived()              {}
func (nopMetrics) CommandHandled(string, error) {}
func (nopMetrics) PollFailed()                  {}
func (nopMetrics) OffsetAdvanced(int64)         {}

var errHandlerPanic = stderrors.New("command handler panicked")
