package launcher

import (
	"fmt"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-tower/flags"
	"github.com/rony4d/go-opera-tower/integration"
	"github.com/rony4d/go-opera-tower/store"
)

// Launch assembles the CLI app and runs it over the given arguments.
func Launch(args []string) error {
	app := flags.NewApp()
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)
	app.Flags = append(app.Flags, flags.SimFlags()...)
	app.Action = runLedger
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Run a fakenet simulation of the configured ledger",
			Action: runLedger,
		},
		{
			Name:   "rules",
			Usage:  "Print the effective ledger rules and exit",
			Action: printRules,
		},
	}
	return app.Run(args)
}

func runLedger(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if err := ensureDir(cfg.Node.DataDir); err != nil {
		return err
	}

	s := store.NewMemory()
	defer s.Close()

	log.WithFields(logrus.Fields{
		"network": cfg.Rules.Name,
		"variant": cfg.Rules.Variant.String(),
		"preset":  cfg.Sim.Name,
		"datadir": cfg.Node.DataDir,
	}).Info("starting ledger run")

	world, err := integration.MakeWorld(cfg.Rules, s, log)
	if err != nil {
		return err
	}
	res, err := world.Run(cfg.Sim)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"entries":     res.Entries,
		"claims":      res.Claims,
		"wins":        res.Wins,
		"losses":      res.Losses,
		"expiries":    res.Expiries,
		"round":       res.Stats.Round,
		"active":      res.Stats.ActiveCount,
		"pool":        res.Stats.PoolBalance,
		"burned":      res.Stats.TotalBurned,
		"paidout":     res.Stats.TotalPaidOut,
		"distributed": res.Stats.TotalDistributed,
	}).Info("ledger run complete")
	return nil
}

func printRules(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, cfg.Rules.String())
	return err
}

// setupLogging configures a logrus logger from the resolved config:
// level from the numeric verbosity, text or json output, and an optional
// Sentry hook for error-and-above reporting.
func setupLogging(cfg Config) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.SetLevel(verbosityLevel(cfg.Logging.Verbosity))

	switch cfg.Logging.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   cfg.Logging.Color,
			DisableColors: !cfg.Logging.Color,
			FullTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("unknown log format: %q (valid: text, json)", cfg.Logging.Format)
	}

	if dsn := cfg.Logging.SentryDSN; dsn != "" {
		hook, err := logrus_sentry.NewSentryHook(dsn, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.StacktraceConfiguration.Enable = true
		logger.AddHook(hook)
	}

	return logger.WithField("instance", cfg.Node.Name), nil
}

func verbosityLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.FatalLevel
	case v == 1:
		return logrus.ErrorLevel
	case v == 2:
		return logrus.WarnLevel
	case v == 3:
		return logrus.InfoLevel
	case v == 4:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
