// Package telegram delivers tracker notifications through the Telegram Bot API.
// It alerts when a refresh cycle gives up, when refreshing recovers, and
// answers the /next command with the countdown to the next contest.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/contest-countdown/internal/logger"
	"github.com/rewired-gh/contest-countdown/internal/models"
	"github.com/rewired-gh/contest-countdown/internal/tracker"
)

// Countdown is the read side of the tracker used to answer commands.
type Countdown interface {
	SecondsTillNextContest() float64
	NextContest() (models.Contest, bool)
}

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	return newClient(botToken, tgbotapi.APIEndpoint, chatID, maxRetries, retryDelayBase)
}

func newClient(botToken, apiEndpoint, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, apiEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// OnExhausted implements tracker.Notifier
func (c *Client) OnExhausted(err error) {
	if sendErr := c.SendError(err); sendErr != nil {
		logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
	}
}

// OnRecovered implements tracker.Notifier
func (c *Client) OnRecovered(failures int) {
	if sendErr := c.SendRecovery(failures); sendErr != nil {
		logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
	}
}

// SendError reports a refresh cycle that ran out of retries
func (c *Client) SendError(err error) error {
	text := fmt.Sprintf("⚠️ *Contest refresh failed*\n\nGave up retrying: %s", escapeMarkdownV2(err.Error()))
	return c.send(c.chatID, text)
}

// SendRecovery reports the first successful refresh after failures
func (c *Client) SendRecovery(failures int) error {
	noun := "failures"
	if failures == 1 {
		noun = "failure"
	}
	text := fmt.Sprintf("✅ *Contest refresh recovered* after %d %s", failures, noun)
	return c.send(c.chatID, text)
}

// send sends a MarkdownV2 message with retry
func (c *Client) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// ListenForCommands answers /next and /start in the configured chat until ctx
// is done. It returns immediately; updates are handled in the background.
func (c *Client) ListenForCommands(ctx context.Context, countdown Countdown) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		c.bot.StopReceivingUpdates()
	}()

	go func() {
		for update := range updates {
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.Chat == nil || msg.Chat.ID != c.chatID {
				continue
			}
			switch msg.Command() {
			case "next", "start":
				if err := c.send(msg.Chat.ID, formatNext(countdown, time.Now())); err != nil {
					logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
				}
			default:
				logger.Debug("Ignoring unknown Telegram command /%s", msg.Command())
			}
		}
	}()
}

// formatNext renders the countdown reply
func formatNext(countdown Countdown, now time.Time) string {
	seconds := countdown.SecondsTillNextContest()
	contest, ok := countdown.NextContest()
	if !ok {
		return "⏳ " + escapeMarkdownV2(tracker.FormatCountdown(seconds))
	}

	start := contest.StartTime()
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 *%s*\n", escapeMarkdownV2(contest.Name))
	fmt.Fprintf(&b, "⏱ Starts in %s\n", escapeMarkdownV2(tracker.FormatCountdown(seconds)))
	fmt.Fprintf(&b, "📅 %s \\(%s\\)",
		escapeMarkdownV2(start.UTC().Format("2006-01-02 15:04 MST")),
		escapeMarkdownV2(humanize.RelTime(start, now, "ago", "from now")))
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
