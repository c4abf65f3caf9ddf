package spice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Ngspice runs decks through an external ngspice binary in batch mode.
type Ngspice struct {
	// Path is the ngspice executable. Defaults to "ngspice" on PATH.
	Path string
	// WorkDir receives the per-deck input and log files. Defaults to a
	// fresh temporary directory per run.
	WorkDir string
	// KeepFiles leaves the deck and log on disk after the run, for
	// debugging a failing corner.
	KeepFiles bool

	Log *slog.Logger
}

func (n *Ngspice) Name() string { return "ngspice" }

func (n *Ngspice) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

// Run writes the deck to disk, invokes ngspice -b, and parses the
// measure results from its log. Cancelling the context kills the
// process.
func (n *Ngspice) Run(ctx context.Context, deck Deck) (Result, error) {
	dir := n.WorkDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "charlib-ngspice-*")
		if err != nil {
			return Result{}, fmt.Errorf("ngspice workdir: %w", err)
		}
		if !n.KeepFiles {
			defer os.RemoveAll(dir)
		}
	}

	deckPath := filepath.Join(dir, deck.Name+".sp")
	logPath := filepath.Join(dir, deck.Name+".log")
	if err := os.WriteFile(deckPath, []byte(deck.Netlist), 0o644); err != nil {
		return Result{}, fmt.Errorf("write deck %s: %w", deck.Name, err)
	}

	path := n.Path
	if path == "" {
		path = "ngspice"
	}
	cmd := exec.CommandContext(ctx, path, "-b", "-o", logPath, deckPath)
	cmd.Dir = dir
	runErr := cmd.Run()

	logText := readLog(logPath)
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if runErr != nil {
		n.logger().Debug("ngspice run failed",
			slog.String("deck", deck.Name),
			slog.String("error", runErr.Error()))
		return Result{}, classify("ngspice", deck.Name, logText)
	}

	measures, err := ParseMeasures(strings.NewReader(logText))
	if err != nil {
		return Result{}, fmt.Errorf("parse ngspice log for %s: %w", deck.Name, err)
	}
	if missing := missingMeasures(deck.Measures, measures); len(missing) > 0 {
		return Result{}, &SimError{
			Tool:   "ngspice",
			Deck:   deck.Name,
			Detail: fmt.Sprintf("measures not evaluated: %s", strings.Join(missing, ", ")),
		}
	}
	return Result{Measures: measures}, nil
}

func readLog(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}
