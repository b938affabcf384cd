// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package comtrade

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the construction parameters of a writer session.
type Config struct {
	// Path is the output path stem. The .cfg, .dat and .hdr extensions are
	// appended to it; a trailing .cfg is stripped first.
	Path          string    `yaml:"path"`
	Start         time.Time `yaml:"start"`
	Trigger       time.Time `yaml:"trigger"`
	StationName   string    `yaml:"station_name"`
	RecDevID      string    `yaml:"rec_dev_id"`
	RevYear       Revision  `yaml:"rev_year"`
	LineFrequency float64   `yaml:"line_frequency"`
	TimeMult      float64   `yaml:"time_multiplier"`
}

// DefaultConfig returns a Config with every optional field set to its default.
func DefaultConfig() Config {
	return Config{
		StationName:   "STN",
		RevYear:       Revision1999,
		LineFrequency: 50,
		TimeMult:      1.0,
	}
}

// Validate checks the fields the format restricts.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	if !c.RevYear.Valid() {
		return fmt.Errorf("%w: revision year %q, expected 1991, 1999 or 2013", ErrInvalidArgument, c.RevYear)
	}
	if err := checkFields("station", c.StationName, c.RecDevID); err != nil {
		return err
	}
	if !isFinite(c.LineFrequency) {
		return fmt.Errorf("%w: non-finite line frequency %v", ErrInvalidArgument, c.LineFrequency)
	}
	// The multiplier is written as an integer.
	if !isFinite(c.TimeMult) || math.Abs(c.TimeMult) >= math.MaxInt64 {
		return fmt.Errorf("%w: time multiplier %v out of range", ErrInvalidArgument, c.TimeMult)
	}
	return nil
}

// stem returns the path without a trailing .cfg extension.
func (c Config) stem() string {
	if strings.HasSuffix(strings.ToLower(c.Path), ".cfg") {
		return c.Path[:len(c.Path)-4]
	}
	return c.Path
}

// LoadConfig reads a YAML session configuration on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
