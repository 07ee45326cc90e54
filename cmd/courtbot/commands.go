package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"courtbot/internal/app"
	"courtbot/internal/chunker"
	"courtbot/internal/jobs"
	"courtbot/internal/storage"
	logx "courtbot/pkg/logx"
	"courtbot/pkg/systemd"
)

// jobArgs maps command line names to job names.
var jobArgs = map[string]string{
	"last-games":    jobs.LastGames,
	"standings":     jobs.Standings,
	"planned-games": jobs.PlannedGames,
}

func jobFromArgs(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected one job: last-games, standings or planned-games")
	}
	arg := strings.ToLower(strings.TrimSpace(c.Args().First()))
	name, ok := jobArgs[arg]
	if !ok {
		return "", fmt.Errorf("unknown job %q: use last-games, standings or planned-games", arg)
	}
	return name, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the bot: scheduled jobs, data refresh and config hot reload",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "How long to wait for an in-flight thread on shutdown",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(c.String("config"))
			if err != nil {
				return err
			}
			log := a.Logger()
			if err := a.Start(ctx); err != nil {
				_ = a.Close()
				return fmt.Errorf("start: %w", err)
			}
			if _, err := systemd.Ready(); err != nil {
				log.Warn("sd_notify READY failed", logx.Err(err))
			}
			_, _ = systemd.Status("waiting for the next schedule")
			go func() {
				if err := systemd.Watchdog(ctx); err != nil {
					log.Warn("systemd watchdog stopped", logx.Err(err))
				}
			}()

			select {
			case <-ctx.Done():
			case <-a.Done():
			}
			_, _ = systemd.Stopping()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
			defer stopCancel()
			return a.Stop(stopCtx)
		},
	}
}

func postCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Publish one job now (respects the posting guard)",
		ArgsUsage: "<last-games|standings|planned-games>",
		Action: func(c *cli.Context) error {
			job, err := jobFromArgs(c)
			if err != nil {
				return err
			}
			a, err := app.New(c.String("config"))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := a.Login(ctx); err != nil {
				return err
			}
			ran, err := a.Post(ctx, job)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintf(c.App.Writer, "%s skipped: another job is running or it ran recently\n", job)
				return nil
			}
			fmt.Fprintf(c.App.Writer, "%s posted\n", job)
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Print the posts a job would publish, with their lengths",
		ArgsUsage: "<last-games|standings|planned-games>",
		Action: func(c *cli.Context) error {
			job, err := jobFromArgs(c)
			if err != nil {
				return err
			}
			a, err := app.New(c.String("config"))
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.Preview(job)
			if err != nil {
				return err
			}
			w := c.App.Writer
			if len(d.Threads) == 0 {
				fmt.Fprintln(w, "nothing to publish")
				return nil
			}
			for i, th := range d.Threads {
				fmt.Fprintf(w, "=== thread %d/%d (%d posts)\n", i+1, len(d.Threads), len(th.Chunks))
				for j := range th.Chunks {
					text := d.Post(th, j)
					n := chunker.Length(text)
					flag := ""
					if n > d.MaxPostLength {
						flag = " OVER LIMIT"
					}
					fmt.Fprintf(w, "--- post %d (%d graphemes%s)\n%s\n", j+1, n, flag, text)
				}
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recently published posts from the audit store",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of posts", Value: 20},
		},
		Action: func(c *cli.Context) error {
			a, err := app.New(c.String("config"))
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.History(c.Context, c.Int("limit"))
			if err != nil {
				if errors.Is(err, storage.ErrDisabled) {
					return fmt.Errorf("history needs storage.driver set in the config")
				}
				return err
			}
			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tJOB\tRUN\t#\tURI")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.At.Local().Format("2006-01-02 15:04:05"), r.Job, shortID(r.RunID), r.Index+1, r.URI)
			}
			return tw.Flush()
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
