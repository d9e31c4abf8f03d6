// caos - compile, inspect, and run life-sim agent scripts
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/psilLang/caos/pkg/caos"
	"github.com/psilLang/caos/pkg/config"
	"github.com/psilLang/caos/pkg/sandbox"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

var (
	flagConfig  string
	flagNoColor bool
	flagVerbose bool
)

// env is what every command needs: configuration, a logger, and a
// language with the sandbox vocabulary.
type env struct {
	cfg  *config.Config
	log  zerolog.Logger
	lang *caos.Language
}

func setup() (*env, error) {
	if flagNoColor {
		color.NoColor = true
	}
	cfg := config.Default()
	if flagConfig != "" {
		c, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		lvl = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}).
		Level(lvl).With().Timestamp().Logger()

	table, err := cfg.Strings()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:  cfg,
		log:  log,
		lang: sandbox.NewLanguage(caos.WithCatalog(table)),
	}, nil
}

// scheduler builds a world and scheduler from the configuration.
func (e *env) scheduler() *sandbox.Scheduler {
	w := sandbox.NewWorld(e.cfg.World.Size, rand.New(rand.NewSource(e.cfg.World.Seed)))
	w.Strings = e.lang.Catalog()
	s := sandbox.NewScheduler(w, e.lang, e.cfg.VM.Quota, os.Stdout)
	s.ImmediateQuota = e.cfg.VM.ImmediateQuota
	s.Log = e.log
	return s
}

func main() {
	root := &cobra.Command{
		Use:           "caos",
		Short:         "Compile, inspect, and run agent scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to caos.toml")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(runCmd(), compileCmd(), disCmd(), saveCmd(), loadCmd(), replCmd())

	if err := root.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError prints each error of a multi-error on its own line.
func printError(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			fmt.Fprintln(os.Stderr, red(e.Error()))
		}
		return
	}
	fmt.Fprintln(os.Stderr, red(err.Error()))
}
