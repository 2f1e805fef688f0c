// Command jobbench runs fork-join workloads on the job system and reports
// throughput, optionally exposing Prometheus metrics while it runs.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "jobbench",
		Usage: "benchmark the fork-join job system",
		Commands: []*cli.Command{
			RunCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("jobbench failed")
	}
}
