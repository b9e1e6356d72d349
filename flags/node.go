package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// SimFlags tunes the built-in fakenet simulation driven by the run command.
func SimFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "preset",
			Usage: "Simulation profile (smoke|demo|soak)",
			Value: "demo",
		},
		cli.IntFlag{
			Name:  "sim.entries",
			Usage: "Number of entries the simulation performs",
		},
		cli.IntFlag{
			Name:  "sim.accounts",
			Usage: "Number of funded accounts entries are drawn from",
		},
		cli.Uint64Flag{
			Name:  "sim.seed",
			Usage: "Seed for the simulation's deterministic randomness",
		},
		cli.IntFlag{
			Name:  "sim.save.every",
			Usage: "Persist engine state to the store every N entries (0 disables)",
		},
	}
}
