package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	outKey        = "out"
	devKey        = "dev"
	hydratableKey = "hydratable"
	cssKey        = "css"
	accessorsKey  = "accessors"
	runtimeKey    = "runtime"
	configKey     = "config"
	statsKey      = "stats"
	sizeKey       = "size"
	iterationsKey = "iterations"
	seedKey       = "seed"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("sveltec-go: ")

	cmd := &cli.Command{
		Name:  "sveltec-go",
		Usage: "Compile components into DOM update modules",
		Commands: []*cli.Command{
			compileCommand(),
			benchCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
