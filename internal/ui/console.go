// Package ui is the console front-end: a line-oriented prompt for tasks and
// a printer for the event stream the dispatch loop publishes.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"deskpilot/internal/agent"
)

// TaskRunner is the slice of the dispatch loop the console needs.
type TaskRunner interface {
	RunTask(ctx context.Context, task string, fresh bool) (agent.Terminal, error)
	RequestStop()
	Running() bool
	ResetContext()
	SetSystemPrompt(prompt string)
}

// Console reads task lines from in and renders loop events to out. It is the
// single consumer of the event channel.
type Console struct {
	in     io.Reader
	out    io.Writer
	events <-chan agent.Event
	runner TaskRunner
	logger *zap.Logger

	// loadPrompt re-reads the system prompt from disk for the reload command.
	loadPrompt func() string

	// tokenPrice is the cost per million tokens, used for the run summary.
	tokenPrice float64

	mu sync.Mutex
}

func NewConsole(in io.Reader, out io.Writer, events <-chan agent.Event, runner TaskRunner, tokenPrice float64, loadPrompt func() string, logger *zap.Logger) *Console {
	return &Console{
		in:         in,
		out:        out,
		events:     events,
		runner:     runner,
		tokenPrice: tokenPrice,
		loadPrompt: loadPrompt,
		logger:     logger.Named("ui"),
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run drives the prompt until "quit", end of input or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	go c.consumeEvents(ctx)

	c.printf("deskpilot ready. Enter a task, \"new <task>\" for a fresh context, \"stop\", \"reset\", \"reload\", or \"quit\".\n")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 64*1024), 64*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		c.printf("> ")
		select {
		case <-ctx.Done():
			c.runner.RequestStop()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.runner.RequestStop()
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				c.runner.RequestStop()
				return nil
			}
		}
	}
}

// handle interprets one input line and reports whether the console should
// exit.
func (c *Console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "quit" || line == "exit":
		return true
	case line == "stop":
		c.runner.RequestStop()
		c.printf("stop requested\n")
		return false
	case line == "reset":
		if c.runner.Running() {
			c.printf("cannot reset while a task is running; use \"stop\" first\n")
			return false
		}
		c.runner.ResetContext()
		c.printf("context cleared\n")
		return false
	case line == "reload":
		if c.runner.Running() {
			c.printf("cannot reload while a task is running; use \"stop\" first\n")
			return false
		}
		c.runner.SetSystemPrompt(c.loadPrompt())
		c.printf("system prompt reloaded\n")
		return false
	}

	fresh := false
	task := line
	if rest, ok := strings.CutPrefix(line, "new "); ok {
		fresh = true
		task = strings.TrimSpace(rest)
	}
	if task == "" {
		return false
	}

	if c.runner.Running() {
		c.printf("a task is already running; use \"stop\" first\n")
		return false
	}

	go func() {
		if _, err := c.runner.RunTask(ctx, task, fresh); err != nil {
			c.printf("task rejected: %v\n", err)
		}
	}()
	return false
}

// consumeEvents renders loop snapshots until the channel closes.
func (c *Console) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.render(ev)
		}
	}
}

func (c *Console) render(ev agent.Event) {
	if ev.Terminal != agent.TerminalNone {
		cost := float64(ev.Tokens) / 1e6 * c.tokenPrice
		c.printf("=== %s | steps: %d | ~%d tokens (≈ %.4f) ===\n",
			ev.Terminal, ev.Step, ev.Tokens, cost)
		if ev.Line != "" {
			c.printf("    %s\n", ev.Line)
		}
		return
	}
	c.printf("[%s #%02d] %s\n", ev.TaskID, ev.Step, ev.Line)
}
