// Package telegrambot answers the bot's chat commands and links chats to
// user profiles.
//
// A /start carrying a user id (the deep link the web app hands out) binds
// the chat to that profile. Plain /start registers the chat without a
// profile; it can still be adopted later by email. /stop deactivates it.
package telegrambot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"floodwatch/internal/external"
	"floodwatch/internal/retry"
	"floodwatch/internal/types"
)

// DefaultConcurrency caps updates handled at once.
const DefaultConcurrency = 5

// UpdateSource delivers bot updates. *tgbotapi.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ProfileStore reads and links user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	SetTelegramChatID(ctx context.Context, userID, chatID string) error
}

// ChatStore persists chats that talked to the bot.
type ChatStore interface {
	Upsert(ctx context.Context, u *types.TelegramUser) error
	Deactivate(ctx context.Context, chatID string) error
}

// Config wires a Listener.
type Config struct {
	Source      UpdateSource
	Sender      external.ChatSender
	Profiles    ProfileStore
	Chats       ChatStore
	Policy      retry.Policy
	Concurrency int
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	Logger      *slog.Logger
	Clock       types.Clock
}

// Listener consumes updates until its context is cancelled.
type Listener struct {
	source      UpdateSource
	sender      external.ChatSender
	profiles    ProfileStore
	chats       ChatStore
	policy      retry.Policy
	concurrency int
	pollTimeout int
	logger      *slog.Logger
	clock       types.Clock
}

// New creates a Listener. A zero Policy uses retry.DefaultPolicy.
func New(cfg Config) *Listener {
	l := &Listener{
		source:      cfg.Source,
		sender:      cfg.Sender,
		profiles:    cfg.Profiles,
		chats:       cfg.Chats,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
	}
	if l.policy.MaxAttempts == 0 {
		l.policy = retry.DefaultPolicy()
	}
	if l.concurrency <= 0 {
		l.concurrency = DefaultConcurrency
	}
	if l.pollTimeout <= 0 {
		l.pollTimeout = 60
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "telegram-bot")
	if l.clock == nil {
		l.clock = types.RealClock{}
	}
	return l
}

// Run polls for updates and handles them until ctx is done. In-flight
// updates finish before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = l.pollTimeout
	updates := l.source.GetUpdatesChan(u)
	defer l.source.StopReceivingUpdates()

	l.logger.Info("telegram listener started", "concurrency", l.concurrency)

	var g errgroup.Group
	g.SetLimit(l.concurrency)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("telegram listener stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				l.process(ctx, update)
				return nil
			})
		}
	}
}

// process handles one update with retries. An update that still fails is
// logged and dropped.
func (l *Listener) process(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	err := retry.Do(ctx, l.policy, func(ctx context.Context) error {
		return l.HandleMessage(ctx, update.Message)
	})
	if err != nil {
		l.logger.Error("telegram update skipped", "update_id", update.UpdateID, "error", err)
	}
}

// HandleMessage dispatches one chat message to its command.
func (l *Listener) HandleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil {
		return nil
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch msg.Command() {
	case "start":
		return l.handleStart(ctx, chatID, msg)
	case "stop":
		if err := l.chats.Deactivate(ctx, chatID); err != nil {
			return err
		}
		return l.reply(ctx, chatID, goodbyeText)
	case "status":
		return l.reply(ctx, chatID, statusText(l.clock.Now()))
	case "help":
		return l.reply(ctx, chatID, helpText)
	default:
		return l.reply(ctx, chatID, fallbackText)
	}
}

func (l *Listener) handleStart(ctx context.Context, chatID string, msg *tgbotapi.Message) error {
	user := &types.TelegramUser{ChatID: chatID, IsActive: true}
	if from := msg.From; from != nil {
		user.Username = from.UserName
		user.FirstName = from.FirstName
		user.LastName = from.LastName
	}

	userID := strings.TrimSpace(msg.CommandArguments())
	if userID == "" {
		if err := l.chats.Upsert(ctx, user); err != nil {
			return err
		}
		return l.reply(ctx, chatID, plainWelcomeText)
	}

	name, email, err := l.link(ctx, userID, chatID, user)
	if err != nil {
		l.logger.Error("telegram link failed", "user_id", userID, "chat_id", chatID, "error", err)
		return l.reply(ctx, chatID, linkErrorText)
	}
	return l.reply(ctx, chatID, linkWelcomeText(name, email))
}

// link binds the chat to the profile and records the chat. A missing
// profile still records the chat under userID.
func (l *Listener) link(ctx context.Context, userID, chatID string, user *types.TelegramUser) (name, email string, err error) {
	profile, err := retry.DoValue(ctx, l.policy, func(ctx context.Context) (*types.Profile, error) {
		return l.profiles.GetProfile(ctx, userID)
	})
	if err != nil {
		return "", "", fmt.Errorf("read profile: %w", err)
	}

	if profile != nil {
		name, email = profile.Name, profile.Email
		if err := l.profiles.SetTelegramChatID(ctx, userID, chatID); err != nil {
			return "", "", fmt.Errorf("save chat id: %w", err)
		}
	} else {
		l.logger.Warn("start with unknown user id", "user_id", userID, "chat_id", chatID)
	}

	user.UserID = userID
	user.Email = email
	if err := l.chats.Upsert(ctx, user); err != nil {
		return "", "", fmt.Errorf("save chat: %w", err)
	}

	if name == "" {
		name = user.FirstName
	}
	if name == "" {
		name = "bạn"
	}
	return name, email, nil
}

func (l *Listener) reply(ctx context.Context, chatID, text string) error {
	_, err := l.sender.SendMessage(ctx, chatID, text)
	return err
}

var vnZone = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}()
