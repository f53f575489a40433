// Package shell launches operating system commands on the model's behalf.
// Commands run through the platform shell so redirects, pipes and builtins
// behave the way the model expects them to.
package shell

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Runner implements the shell effector.
type Runner struct {
	logger *zap.Logger
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger.Named("shell")}
}

// shellCommand wraps a command line in the platform shell.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// RunSync runs a command and waits for it, up to the given timeout. Output is
// discarded; commands that matter redirect into a file the model reads back.
func (r *Runner) RunSync(ctx context.Context, command string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	cmd := shellCommand(cctx, command)
	err := cmd.Run()
	elapsed := time.Since(started)

	if cctx.Err() == context.DeadlineExceeded {
		r.logger.Warn("command timed out",
			zap.String("command", command),
			zap.Duration("timeout", timeout),
		)
		return fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		r.logger.Warn("command failed",
			zap.String("command", command),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return fmt.Errorf("command failed: %w", err)
	}
	r.logger.Debug("command finished",
		zap.String("command", command),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// RunDetached starts a command and does not wait for it. Used for launching
// applications the model will interact with afterwards.
func (r *Runner) RunDetached(command string) error {
	cmd := shellCommand(context.Background(), command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %q: %w", command, err)
	}
	r.logger.Debug("command launched",
		zap.String("command", command),
		zap.Int("pid", cmd.Process.Pid),
	)
	// Reap in the background so the child never zombifies.
	go func() { _ = cmd.Wait() }()
	return nil
}
