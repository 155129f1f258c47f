package cmd

import (
	"log/slog"
	"os"

	"github.com/cottand/tyrel/coherence"
	"github.com/cottand/tyrel/fixture"
	"github.com/cottand/tyrel/internal/log"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	logLevel       int
	sections       []string
	overlapMode    string
	recursionLimit int
	skipLeakCheck  bool
)

// errConflicts is returned when a command found violations, so that the process exits
// with status 1 after printing them
var errConflicts = errors.New("conflicts found")

func addCommonFlags(c *cobra.Command) {
	c.Flags().IntVarP(&logLevel, "log-level", "l", int(slog.LevelWarn), "log level")
	c.Flags().StringSliceVar(&sections, "section", nil, "log sections to enable below warn, e.g. solve,coherence")
	c.Flags().IntVar(&recursionLimit, "recursion-limit", coherence.DefaultConfig().RecursionLimit, "depth of nested goals before a goal overflows")
}

func addCoherenceFlags(c *cobra.Command) {
	c.Flags().StringVarP(&overlapMode, "mode", "m", coherence.Stable.String(), "overlap mode: stable, with-negative or strict")
	c.Flags().BoolVar(&skipLeakCheck, "skip-leak-check", false, "allow higher-ranked impls to overlap with less general ones")
}

func setupLogging() {
	fd := os.Stderr.Fd()
	log.SetOutput(os.Stderr, !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd))
	log.SetLevel(slog.Level(logLevel))
	if len(sections) > 0 {
		log.SetSections(sections...)
	}
}

func coherenceConfig() (coherence.Config, error) {
	mode, err := coherence.ParseOverlapMode(overlapMode)
	if err != nil {
		return coherence.Config{}, err
	}
	cfg := coherence.DefaultConfig()
	cfg.Mode = mode
	cfg.SkipLeakCheck = skipLeakCheck
	cfg.RecursionLimit = recursionLimit
	return cfg, nil
}

func load(path string) (*fixture.Fixture, error) {
	setupLogging()
	return fixture.Load(path)
}
