package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"connect4/config"
	"connect4/experiments"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `Connect4: a command line Connect 4 agent simulator

Usage: connect4 [-t <test type>] [-n <number of trials>] [-v] [-config <file>] [-weights <file>] [-out <dir>]

Options:
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("connect4", flag.ContinueOnError)
	testType := fs.String("t", experiments.ModeSingle, "test type: "+strings.Join(experiments.Modes, ", "))
	trials := fs.Int("n", 0, "number of trials, positive")
	verbose := fs.Bool("v", false, "verbose")
	configPath := fs.String("config", "", "config file, settings can also be set by C4_* environment variables")
	weights := fs.String("weights", "", "linear weights file to train or play with")
	out := fs.String("out", "", "directory of the results")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return 1
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	c, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}
	if *trials > 0 {
		c.Trials = *trials
	}
	if *verbose {
		c.Verbose = true
	}
	if *weights != "" {
		c.Linear.Weights = *weights
	}
	if *out != "" {
		c.Out = *out
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := experiments.NewRunner(c, os.Stdin, os.Stdout)
	if err := runner.Run(ctx, *testType); err != nil {
		if errors.Is(err, experiments.ErrUnknownMode) {
			log.Error().Err(err).Msg("test type was not recognized, enter -h for help")
			return 2
		}
		log.Error().Err(err).Msgf("%s failed", *testType)
		return 1
	}
	return 0
}
