package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags selects the deployment rules: which network preset to load,
// which engine variant to run, and the per-parameter overrides on top.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network preset to load (main|test|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "variant",
			Usage: "Engine variant to run (stack|tower)",
		},
		cli.StringFlag{
			Name:  "entry.cost",
			Usage: "Exact payment required per entry, in base units (decimal)",
		},
		cli.Uint64Flag{
			Name:  "split.participant",
			Usage: "Share of each entry distributed to existing positions, in basis points",
		},
		cli.Uint64Flag{
			Name:  "split.burn",
			Usage: "Share of each entry burned, in basis points",
		},
		cli.Uint64Flag{
			Name:  "split.instant",
			Usage: "Share of each entry paid to the previous entrant, in basis points (stack only)",
		},
		cli.Uint64Flag{
			Name:  "lottery.modulo",
			Usage: "Roll space of the lottery; a roll of zero wins (tower only)",
		},
		cli.Uint64Flag{
			Name:  "lottery.window",
			Usage: "Blocks after the commit height a reveal stays valid (tower only)",
		},
	}
}
