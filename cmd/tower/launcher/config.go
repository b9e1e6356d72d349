package launcher

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-tower/integration"
	"github.com/rony4d/go-opera-tower/tower"
)

// Config aggregates everything a run needs: instance identity, the ledger
// rules, the simulation profile and the logging setup.
type Config struct {
	Node    NodeConfig
	Rules   tower.Rules
	Sim     integration.PresetConfig
	Logging LoggingConfig
}

// NodeConfig holds local instance settings.
type NodeConfig struct {
	DataDir string
	Name    string
}

// LoggingConfig holds the resolved logging options.
type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string
}

// MakeAllConfigs builds the aggregate Config from defaults, the selected
// network and simulation presets, and the CLI flag overrides on top.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	d := DefaultConfig()
	cfg := Config{
		Node: NodeConfig{
			DataDir: d.Node.DataDir,
			Name:    d.Node.Name,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
	}

	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = ctx.GlobalString("datadir")
	}
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}

	rules, err := makeRules(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg.Rules = rules

	sim, err := makeSim(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg.Sim = sim

	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.format") {
		cfg.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("sentry.dsn") {
		cfg.Logging.SentryDSN = ctx.GlobalString("sentry.dsn")
	}

	return cfg, nil
}

// makeRules resolves the network preset, applies the variant selection and
// per-parameter overrides, and validates the result.
func makeRules(ctx *cli.Context) (tower.Rules, error) {
	var rules tower.Rules
	switch name := ctx.GlobalString("network"); name {
	case "main":
		rules = tower.MainNetRules()
	case "test":
		rules = tower.TestNetRules()
	case "fake", "":
		rules = tower.FakeNetRules()
	default:
		return tower.Rules{}, fmt.Errorf("unknown network: %q (valid: main, test, fake)", name)
	}

	if ctx.GlobalIsSet("variant") {
		switch v := ctx.GlobalString("variant"); v {
		case "stack":
			if rules.NetworkID == tower.FakeNetworkID {
				rules = tower.FakeStackRules()
			} else {
				rules.Variant = tower.VariantStack
				rules.Lottery = tower.LotteryRules{}
			}
		case "tower":
			// every network preset is tower-variant already
		default:
			return tower.Rules{}, fmt.Errorf("unknown variant: %q (valid: stack, tower)", v)
		}
	}

	if ctx.GlobalIsSet("entry.cost") {
		raw := ctx.GlobalString("entry.cost")
		cost, ok := new(big.Int).SetString(raw, 10)
		if !ok || cost.Sign() <= 0 {
			return tower.Rules{}, fmt.Errorf("invalid entry cost: %q", raw)
		}
		rules.EntryCost = cost
	}
	if ctx.GlobalIsSet("split.participant") {
		rules.Split.ParticipantBP = ctx.GlobalUint64("split.participant")
	}
	if ctx.GlobalIsSet("split.burn") {
		rules.Split.BurnBP = ctx.GlobalUint64("split.burn")
	}
	if ctx.GlobalIsSet("split.instant") {
		rules.Split.InstantBP = ctx.GlobalUint64("split.instant")
	}
	if ctx.GlobalIsSet("lottery.modulo") {
		rules.Lottery.Modulo = ctx.GlobalUint64("lottery.modulo")
	}
	if ctx.GlobalIsSet("lottery.window") {
		rules.Lottery.RevealWindow = idx.Block(ctx.GlobalUint64("lottery.window"))
	}

	if err := rules.Validate(); err != nil {
		return tower.Rules{}, err
	}
	return rules, nil
}

// makeSim resolves the simulation preset and applies flag overrides.
func makeSim(ctx *cli.Context) (integration.PresetConfig, error) {
	p, err := integration.GetPresetByName(ctx.GlobalString("preset"))
	if err != nil {
		return integration.PresetConfig{}, err
	}
	if ctx.GlobalIsSet("sim.entries") {
		p.Entries = ctx.GlobalInt("sim.entries")
	}
	if ctx.GlobalIsSet("sim.accounts") {
		p.Accounts = ctx.GlobalInt("sim.accounts")
	}
	if ctx.GlobalIsSet("sim.seed") {
		p.Seed = ctx.GlobalUint64("sim.seed")
	}
	if ctx.GlobalIsSet("sim.save.every") {
		p.SaveEvery = ctx.GlobalInt("sim.save.every")
	}
	return p, nil
}

// GuessHomeDir returns the user's home directory, falling back to the
// current directory when it cannot be determined.
func GuessHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// resolvePath expands a leading "~" and makes the path absolute.
func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		p = filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0700)
}
