package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Thresholds gates alerting. Percentages are whole numbers in [0, 100].
type Thresholds struct {
	// Activation is the overall usage percent a filesystem must reach
	// before its pools are inspected at all. Below it the allocator
	// self-corrects as usage grows.
	Activation int
	// DataLow fires the data alert when the pool's used percent is at or
	// below it: low usage across allocated chunks means the allocation is
	// sparse and balance can hand space back.
	DataLow int
	// MetadataHigh fires the metadata alert when the pool's used percent
	// is at or above it: metadata close to full allocation risks failing
	// to allocate structural blocks while raw space still exists.
	MetadataHigh int
	// Fix authorizes balance runs for fired alerts. Requires root.
	Fix bool
}

// Plans holds the balance usage-target schedules, strictly ascending. The
// data schedule is longer: data chunks benefit from incremental
// convergence, metadata passes above low targets mostly churn.
type Plans struct {
	Data     []int
	Metadata []int
}

// Config is the full runtime configuration, built once from flags and
// passed down by value.
type Config struct {
	Thresholds     Thresholds
	Plans          Plans
	Paths          []string
	ExecTimeout    time.Duration
	BalanceTimeout time.Duration
	TextfileDir    string
	Verbose        bool
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Thresholds: Thresholds{Activation: 60, DataLow: 70, MetadataHigh: 85},
		Plans: Plans{
			Data:     []int{0, 5, 10, 15, 25, 50, 75},
			Metadata: []int{0, 5, 10},
		},
		ExecTimeout: 30 * time.Second,
	}
}

// ParseTargets parses a balance schedule given as comma- or space-
// separated whole percentages, e.g. "0,5,10" or "0 5 10".
func ParseTargets(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty balance target list %q", s)
	}
	targets := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("balance target %q is not a whole percent", f)
		}
		targets = append(targets, n)
	}
	return targets, nil
}

// Validate checks ranges and ordering once at startup; any violation is a
// configuration error that aborts the run before filesystems are touched.
func (c Config) Validate() error {
	for _, p := range []struct {
		name  string
		value int
	}{
		{"threshold", c.Thresholds.Activation},
		{"data-watermark", c.Thresholds.DataLow},
		{"metadata-watermark", c.Thresholds.MetadataHigh},
	} {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", p.name, p.value)
		}
	}
	if err := validateTargets("dusage", c.Plans.Data); err != nil {
		return err
	}
	if err := validateTargets("musage", c.Plans.Metadata); err != nil {
		return err
	}
	for _, p := range c.Paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("path %q must be absolute", p)
		}
	}
	if c.ExecTimeout < 0 || c.BalanceTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func validateTargets(name string, targets []int) error {
	if len(targets) == 0 {
		return fmt.Errorf("%s target list must not be empty", name)
	}
	prev := -1
	for _, t := range targets {
		if t < 0 || t > 100 {
			return fmt.Errorf("%s target %d out of range 0-100", name, t)
		}
		if t <= prev {
			return fmt.Errorf("%s targets must be strictly ascending, got %v", name, targets)
		}
		prev = t
	}
	return nil
}
