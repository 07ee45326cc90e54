package refresh

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	logx "courtbot/pkg/logx"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunLogsOutput(t *testing.T) {
	requireShell(t)
	var buf bytes.Buffer
	r := New(Config{Command: "sh", Args: []string{"-c", "echo fetched 12 games; echo warn >&2"}}, logx.NewWriter(&buf, "debug"))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "fetched 12 games") || !strings.Contains(out, "refresh stderr") {
		t.Fatalf("output not logged: %s", out)
	}
}

func TestRunReportsFailureAndTimeout(t *testing.T) {
	requireShell(t)
	r := New(Config{Command: "sh", Args: []string{"-c", "exit 3"}}, logx.Nop())
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	r = New(Config{Command: "sh", Args: []string{"-c", "exec sleep 5"}, Timeout: 50 * time.Millisecond}, logx.Nop())
	start := time.Now()
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 4*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestRunRequiresCommand(t *testing.T) {
	if err := New(Config{}, logx.Nop()).Run(context.Background()); err == nil {
		t.Fatal("expected error for empty command")
	}
}
