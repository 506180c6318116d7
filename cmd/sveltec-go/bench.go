package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"sveltec-go/packages/runtime/bench"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure keyed list reconciliation in the reference runtime",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  sizeKey,
				Usage: "Rows in the list",
				Value: 1000,
			},
			&cli.IntFlag{
				Name:  iterationsKey,
				Usage: "Updates per scenario",
				Value: 200,
			},
			&cli.IntFlag{
				Name:  seedKey,
				Usage: "Seed for shuffles and churn",
				Value: 1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := bench.Config{
				Size:       int(cmd.Int(sizeKey)),
				Iterations: int(cmd.Int(iterationsKey)),
				Seed:       cmd.Int(seedKey),
			}
			log.Printf("reconciling %d rows %d times per scenario", cfg.Size, cfg.Iterations)
			results, err := bench.Run(cfg)
			if err != nil {
				return err
			}
			renderBench(os.Stdout, cfg, results)
			return nil
		},
	}
}
