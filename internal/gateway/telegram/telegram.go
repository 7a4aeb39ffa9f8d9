// Package telegram implements the messaging gateway and the bot command
// surface on top of telebot long polling.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"volbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout; default 10s
	RatePerSec  int           // outbound send limit; default 25 (Telegram global cap is ~30)
}

type Adapter struct {
	log logx.Logger
	bot *tele.Bot

	mu      sync.Mutex
	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool
	stopped chan struct{}
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{log: log, bot: b}
	a.applyRate(cfg.RatePerSec)
	return a, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

// ApplyRate swaps the outbound rate limit at runtime (config hot reload).
func (a *Adapter) ApplyRate(perSec int) { a.applyRate(perSec) }

func (a *Adapter) applyRate(perSec int) {
	if perSec <= 0 {
		perSec = 25
	}
	a.mu.Lock()
	a.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	a.mu.Unlock()
}

// SendText delivers one message to one chat, honoring the global outbound
// rate limit. The error is the recipient's alone.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	a.mu.Lock()
	lim := a.limiter
	a.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(&tele.User{ID: chatID}, text)
	if err != nil {
		a.log.Debug("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
	return err
}

// Start begins long polling and returns immediately. Polling stops when ctx
// is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.stopped = make(chan struct{})
	stopped := a.stopped
	a.runMu.Unlock()

	go func() {
		defer close(stopped)
		a.bot.Start()
	}()
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	a.log.Info("telegram polling started")
}

// Stop waits briefly for the poll loop to wind down.
func (a *Adapter) Stop(ctx context.Context) {
	a.runMu.Lock()
	stopped := a.stopped
	running := a.running
	a.running = false
	a.runMu.Unlock()
	if !running || stopped == nil {
		return
	}
	select {
	case <-stopped:
	case <-ctx.Done():
	}
	a.log.Info("telegram polling stopped")
}
