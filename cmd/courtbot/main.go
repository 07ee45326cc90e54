package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "courtbot",
		Usage:   "Post NBA scores, standings and schedules to Bluesky as threads",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (YAML or JSON)",
				Value:   "./config.yaml",
				EnvVars: []string{"COURTBOT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			postCommand(),
			previewCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
