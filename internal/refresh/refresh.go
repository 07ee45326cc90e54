// Package refresh runs the external data-refresh command that rewrites the
// content files. It is scheduled independently of the publishing jobs.
package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	logx "courtbot/pkg/logx"
)

type Config struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// DefaultConfig runs the bundled python fetcher.
func DefaultConfig() Config {
	return Config{
		Command: "python3",
		Args:    []string{"./backend/main.py"},
		Timeout: 5 * time.Minute,
	}
}

// Runner executes the external data-refresh command.
type Runner struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run executes the command once and logs its output.
func (r *Runner) Run(ctx context.Context) error {
	if strings.TrimSpace(r.cfg.Command) == "" {
		return errors.New("refresh: command required")
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.cfg.Args...)
	cmd.Dir = r.cfg.Dir
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	took := time.Since(start)

	if out := strings.TrimSpace(stdout.String()); out != "" {
		r.log.Info("refresh stdout", logx.String("out", truncate(out, 2000)))
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		r.log.Warn("refresh stderr", logx.String("out", truncate(out, 2000)))
	}
	if err != nil {
		return fmt.Errorf("refresh %s: %w", r.cfg.Command, err)
	}
	r.log.Info("data refreshed", logx.Duration("took", took))
	return nil
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	return s[:maxN-3] + "..."
}
