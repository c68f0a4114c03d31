package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tradeslink",
		Usage: "Trades marketplace API server",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			pruneSessionsCommand,
		},
		DefaultCommand: serveCommand.Name,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
