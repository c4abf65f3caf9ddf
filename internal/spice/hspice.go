package spice

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Hspice runs decks through an external hspice binary. Measure results
// are read from the .mt0 table hspice writes next to the deck.
type Hspice struct {
	Path      string // executable, defaults to "hspice" on PATH
	WorkDir   string // per-deck file directory, temp dir when empty
	KeepFiles bool

	Log *slog.Logger
}

func (h *Hspice) Name() string { return "hspice" }

func (h *Hspice) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// Run writes the deck, invokes hspice -i deck -o prefix, and parses
// the .mt0 measure table.
func (h *Hspice) Run(ctx context.Context, deck Deck) (Result, error) {
	dir := h.WorkDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "charlib-hspice-*")
		if err != nil {
			return Result{}, fmt.Errorf("hspice workdir: %w", err)
		}
		if !h.KeepFiles {
			defer os.RemoveAll(dir)
		}
	}

	deckPath := filepath.Join(dir, deck.Name+".sp")
	outPrefix := filepath.Join(dir, deck.Name)
	if err := os.WriteFile(deckPath, []byte(deck.Netlist), 0o644); err != nil {
		return Result{}, fmt.Errorf("write deck %s: %w", deck.Name, err)
	}

	path := h.Path
	if path == "" {
		path = "hspice"
	}
	cmd := exec.CommandContext(ctx, path, "-i", deckPath, "-o", outPrefix)
	cmd.Dir = dir
	runErr := cmd.Run()

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if runErr != nil {
		h.logger().Debug("hspice run failed",
			slog.String("deck", deck.Name),
			slog.String("error", runErr.Error()))
		return Result{}, classify("hspice", deck.Name, readLog(outPrefix+".lis"))
	}

	measures, err := parseMT0(outPrefix + ".mt0")
	if err != nil {
		return Result{}, fmt.Errorf("parse hspice measures for %s: %w", deck.Name, err)
	}
	if missing := missingMeasures(deck.Measures, measures); len(missing) > 0 {
		return Result{}, &SimError{
			Tool:   "hspice",
			Deck:   deck.Name,
			Detail: fmt.Sprintf("measures not evaluated: %s", strings.Join(missing, ", ")),
		}
	}
	return Result{Measures: measures}, nil
}

// parseMT0 reads an hspice measure table: comment lines, a header row
// of measure names, then a data row per sweep point. Characterization
// decks have exactly one data row.
func parseMT0(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	var values []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "$") || strings.HasPrefix(line, "*") ||
			strings.HasPrefix(line, ".") {
			continue
		}
		fields := strings.Fields(line)
		if names == nil {
			names = fields
			continue
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q", field)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(values) < len(names) {
		return nil, fmt.Errorf("truncated measure table: %d names, %d values", len(names), len(values))
	}

	measures := make(map[string]float64, len(names))
	for i, name := range names {
		// The trailing alter#/temper columns are sweep bookkeeping.
		if name == "alter#" || name == "temper" {
			continue
		}
		measures[strings.ToLower(name)] = values[i]
	}
	return measures, nil
}
