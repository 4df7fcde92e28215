// Package cli configures the quarry CLI app and its commands.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/options"
	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

const AppName = "quarry"

// NewApp creates the quarry CLI App.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = AppName
	app.Usage = "Flatten parameterized build descriptions into a concrete build manifest"
	app.HideHelpCommand = true

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "working-dir",
			Usage: "The directory containing the project root description.",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to the project root description file.",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: fmt.Sprintf("Log level, one of %v.", log.AllLevels),
			Value: log.InfoLevel.String(),
		},
		&cli.StringFlag{
			Name:  "genroot",
			Usage: "Override the generation root the manifest and outputs live under.",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Name of the emitted manifest file.",
			Value: options.DefaultManifestName,
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Named base environment entry targets evaluate in.",
			Value: "default",
		},
		&cli.BoolFlag{
			Name:  "dump-env",
			Usage: "Write a diagnostic dump of each product's environment alongside the manifest.",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "generate",
			Usage:     "Evaluate the requested targets and write the build manifest.",
			ArgsUsage: "[target...]",
			Action:    runAction(runGenerate),
		},
		{
			Name:   "targets",
			Usage:  "Load the project and list every discoverable target without evaluating.",
			Action: runAction(runTargets),
		},
		{
			Name:   "graph",
			Usage:  "Load the project and print the static dependency edges.",
			Action: runAction(runGraph),
		},
	}

	// A bare invocation behaves like `generate` with no targets.
	app.Action = runAction(runGenerate)

	return app
}

// runAction resolves the options and logger shared by every command and turns errors into a single diagnostic block
// with a non-zero exit.
func runAction(action func(l log.Logger, opts *options.Options, args []string) error) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		l, opts, err := resolveOptions(cliCtx)
		if err != nil {
			return exitError(err)
		}

		if err := action(l, opts, cliCtx.Args().Slice()); err != nil {
			if l.Level() >= log.DebugLevel {
				l.Debug(errors.ErrorStack(err))
			}

			return exitError(err)
		}

		return nil
	}
}

func resolveOptions(cliCtx *cli.Context) (log.Logger, *options.Options, error) {
	level, err := log.ParseLevel(cliCtx.String("log-level"))
	if err != nil {
		return nil, nil, err
	}

	l := log.New(log.WithLevel(level))

	workingDir := cliCtx.String("working-dir")
	if workingDir == "" {
		workingDir, err = os.Getwd()
		if err != nil {
			return nil, nil, errors.New(err)
		}
	}

	if !util.IsDir(workingDir) {
		return nil, nil, errors.Errorf("working directory %s does not exist", workingDir)
	}

	opts := options.NewOptions(workingDir)
	opts.GenDir = cliCtx.String("genroot")
	opts.ManifestName = cliCtx.String("out")
	opts.BaseEnvName = cliCtx.String("env")
	opts.DumpEnv = cliCtx.Bool("dump-env")

	if configPath := cliCtx.String("config"); configPath != "" {
		opts.ConfigPath = configPath
	}

	return l, opts, nil
}

func exitError(err error) error {
	return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), 1)
}
