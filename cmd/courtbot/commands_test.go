package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func testCLI(out *bytes.Buffer) *cli.App {
	return &cli.App{
		Name:   "courtbot",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
		},
		Commands: []*cli.Command{previewCommand(), historyCommand()},
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	return writeConfigWith(t, []string{"Celtics vs. Heat 19:30", "Nuggets vs. Lakers 22:00"}, "")
}

// writeConfigWith stores games as tonight's feed; extra is spliced into the
// config object as additional sections.
func writeConfigWith(t *testing.T, games []string, extra string) string {
	t.Helper()
	dir := t.TempDir()
	b, err := json.Marshal(games)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "future_games.json"), b, 0o600); err != nil {
		t.Fatalf("write games: %v", err)
	}
	cfg := filepath.Join(dir, "config.json")
	body := `{"content":{"dir":` + jsonQuote(dir) + `},"logging":{"level":"error"}` + extra + `}`
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestPreviewPrintsPostsWithLengths(t *testing.T) {
	var out bytes.Buffer
	cfg := writeConfig(t)
	if err := testCLI(&out).Run([]string{"courtbot", "--config", cfg, "preview", "planned-games"}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	got := out.String()
	for _, want := range []string{"=== thread 1/1 (1 posts)", "Tonight's games:\nCeltics vs. Heat 19:30\nNuggets vs. Lakers 22:00\n#NBA", "graphemes)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPreviewShowsRepliesAsPublished(t *testing.T) {
	var out bytes.Buffer
	games := []string{
		"Celtics vs. Heat 19:30",
		"Nuggets vs. Lakers 22:00",
		"Portland Trail Blazers vs. Minnesota Timberwolves 03:00",
	}
	cfg := writeConfigWith(t, games, `,"publish":{"continuation":"(cont.) ","max_post_length":60}`)
	if err := testCLI(&out).Run([]string{"courtbot", "--config", cfg, "preview", "planned-games"}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"=== thread 1/1 (3 posts)",
		"--- post 1 (44 graphemes)\nTonight's games:\nCeltics vs. Heat 19:30\n#NBA",
		"--- post 2 (37 graphemes)\n(cont.) Nuggets vs. Lakers 22:00\n#NBA",
		"--- post 3 (68 graphemes OVER LIMIT)\n(cont.) Portland",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPreviewRejectsUnknownJob(t *testing.T) {
	var out bytes.Buffer
	cfg := writeConfig(t)
	err := testCLI(&out).Run([]string{"courtbot", "--config", cfg, "preview", "highlights"})
	if err == nil || !strings.Contains(err.Error(), "unknown job") {
		t.Fatalf("err = %v", err)
	}
}

func TestHistoryNeedsStorage(t *testing.T) {
	var out bytes.Buffer
	cfg := writeConfig(t)
	err := testCLI(&out).Run([]string{"courtbot", "--config", cfg, "history"})
	if err == nil || !strings.Contains(err.Error(), "storage.driver") {
		t.Fatalf("err = %v", err)
	}
}
