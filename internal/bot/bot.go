// Package bot wires the chat command surface onto the telegram adapter.
// Commands are thin: parse, call a service, render a reply. All scheduling
// logic lives in roster and reminder.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"volbot/internal/domain"
	"volbot/internal/eventclock"
	"volbot/internal/roster"
	"volbot/internal/storage"
	"volbot/pkg/logx"
)

type Config struct {
	AdminIDs []int64
}

type Handlers struct {
	log    logx.Logger
	clock  *eventclock.Clock
	store  storage.Store
	roster *roster.Service

	mu     sync.Mutex
	admins map[int64]bool
}

func New(cfg Config, clock *eventclock.Clock, store storage.Store, ros *roster.Service, log logx.Logger) *Handlers {
	h := &Handlers{log: log, clock: clock, store: store, roster: ros}
	h.Apply(cfg)
	return h
}

// Apply swaps the admin set (config hot reload).
func (h *Handlers) Apply(cfg Config) {
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	h.mu.Lock()
	h.admins = admins
	h.mu.Unlock()
}

func (h *Handlers) isAdmin(id int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.admins[id]
}

// Register attaches all command handlers to the bot.
func (h *Handlers) Register(b *tele.Bot) {
	b.Handle("/start", h.handleStart)
	b.Handle("/today", h.handleToday)
	b.Handle("/mytasks", h.handleMyTasks)
	b.Handle("/debug_status", h.handleDebugStatus)
	b.Handle("/set_debug_time", h.handleSetDebugTime)
}

func (h *Handlers) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// handleStart registers (or refreshes) the sender as a volunteer. Admins
// listed in config keep the admin role.
func (h *Handlers) handleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := h.ctx()
	defer cancel()

	v := domain.Volunteer{
		ID:       sender.ID,
		Username: sender.Username,
		Name:     strings.TrimSpace(sender.FirstName + " " + sender.LastName),
		Role:     domain.RoleVolunteer,
	}
	if h.isAdmin(sender.ID) {
		v.Role = domain.RoleAdmin
	}
	if err := h.roster.RegisterVolunteer(ctx, v); err != nil {
		h.log.Error("volunteer registration failed", logx.Int64("user_id", sender.ID), logx.Err(err))
		return c.Send("Registration failed, please try again later.")
	}
	return c.Send(fmt.Sprintf("Welcome, %s! You are registered.\nEvent status: %s",
		v.Name, h.clock.Status()))
}

// handleToday lists the sender's tasks for the current event day. Admins see
// every task scheduled for the day instead.
func (h *Handlers) handleToday(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	day := h.clock.CurrentEventDay()
	if day == 0 {
		return c.Send("The event is not running right now: " + h.clock.Status())
	}
	ctx, cancel := h.ctx()
	defer cancel()

	if h.isAdmin(sender.ID) {
		tasks, err := h.roster.TasksOnDay(ctx, day)
		if err != nil {
			h.log.Error("today lookup failed", logx.Err(err))
			return c.Send("Could not load today's tasks.")
		}
		if len(tasks) == 0 {
			return c.Send(fmt.Sprintf("No tasks on Day %d.", day))
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Tasks on Day %d:\n", day)
		for _, t := range tasks {
			fmt.Fprintf(&b, "\n📋 %s\n🕒 %s\n", t.Title, t.Span)
		}
		return c.Send(b.String())
	}

	assigned, err := h.roster.TasksForVolunteer(ctx, sender.ID)
	if err != nil {
		h.log.Error("today lookup failed", logx.Int64("user_id", sender.ID), logx.Err(err))
		return c.Send("Could not load today's tasks.")
	}
	var b strings.Builder
	n := 0
	for _, at := range assigned {
		span := at.Assignment.Span
		if span.Start.Day > day || day > span.End.Day {
			continue
		}
		fmt.Fprintf(&b, "\n📋 %s\n🕒 %s\n", at.Task.Title, span)
		n++
	}
	if n == 0 {
		return c.Send(fmt.Sprintf("Nothing assigned to you on Day %d.", day))
	}
	return c.Send(fmt.Sprintf("Your tasks on Day %d:\n%s", day, b.String()))
}

func (h *Handlers) handleMyTasks(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := h.ctx()
	defer cancel()

	assigned, err := h.roster.TasksForVolunteer(ctx, sender.ID)
	if err != nil {
		h.log.Error("mytasks lookup failed", logx.Int64("user_id", sender.ID), logx.Err(err))
		return c.Send("Could not load your tasks.")
	}
	if len(assigned) == 0 {
		return c.Send("You have no active assignments.")
	}
	var b strings.Builder
	b.WriteString("Your assignments:\n")
	for _, at := range assigned {
		fmt.Fprintf(&b, "\n📋 %s\n🕒 %s\n", at.Task.Title, at.Assignment.Span)
		if at.Task.Description != "" {
			fmt.Fprintf(&b, "📝 %s\n", at.Task.Description)
		}
	}
	return c.Send(b.String())
}

func (h *Handlers) handleDebugStatus(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !h.isAdmin(sender.ID) {
		return nil
	}
	now := h.clock.Now()
	return c.Send(fmt.Sprintf("Status: %s\nAbsolute: %s\nDebug mode: %v",
		h.clock.Status(), now.Format("2006-01-02 15:04:05 MST"), h.clock.DebugMode()))
}

// handleSetDebugTime moves the simulated clock: /set_debug_time <day> <HH:MM>.
// Admin-only and refused outright when debug mode is off.
func (h *Handlers) handleSetDebugTime(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !h.isAdmin(sender.ID) {
		return nil
	}
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /set_debug_time <day> <HH:MM>")
	}
	day, err := strconv.Atoi(args[0])
	if err != nil || day < 1 {
		return c.Send("Day must be a positive number.")
	}
	et := eventclock.EventTime{Day: day, Time: args[1]}
	abs, err := h.clock.Absolute(et)
	if err != nil {
		return c.Send("Invalid time: " + err.Error())
	}
	if err := h.clock.SetDebugTime(abs); err != nil {
		if errors.Is(err, eventclock.ErrDebugDisabled) {
			return c.Send("Debug mode is off; the clock cannot be overridden.")
		}
		return c.Send("Could not set debug time: " + err.Error())
	}

	ctx, cancel := h.ctx()
	defer cancel()
	e := storage.AuditEntry{
		At:      time.Now().UTC(),
		ActorID: sender.ID,
		Action:  "debug.set_time",
		Target:  "clock",
		Detail:  et.String(),
	}
	if err := h.store.AppendAudit(ctx, e); err != nil {
		h.log.Warn("audit append failed", logx.Err(err))
	}
	h.log.Info("debug time set", logx.Int64("admin_id", sender.ID), logx.String("to", et.String()))
	return c.Send("Debug time set to " + et.String())
}
