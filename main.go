package main

import (
	"os"

	"github.com/quarry-build/quarry/cli"
)

func main() {
	app := cli.NewApp()

	if err := app.Run(os.Args); err != nil {
		// urfave/cli has already rendered the exit message.
		os.Exit(1)
	}
}
