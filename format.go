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
	"strconv"
	"strings"
	"time"
)

// timestampLayout is dd/mm/yyyy,hh:mm:ss.ssssss.
const timestampLayout = "02/01/2006,15:04:05.000000"

// recordTerminator ends the data file.
const recordTerminator = 0x1A

func formatTimestamp(ts time.Time) string {
	return ts.Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// Some recorders write fewer fractional digits (or nanoseconds).
	return time.Parse("02/01/2006,15:04:05.999999999", s)
}

// formatReal renders v in the shortest form that parses back to the same
// value, switching to exponent notation for very small or large magnitudes.
func formatReal(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMultiplier truncates the time multiplier to an integer; readers expect
// an integer field here.
func formatMultiplier(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// checkFields rejects text that would shift the comma separated fields of a
// configuration line.
func checkFields(what string, values ...string) error {
	for _, v := range values {
		if strings.ContainsAny(v, ",\r\n") {
			return fmt.Errorf("%w: %s field %q contains a delimiter", ErrInvalidArgument, what, v)
		}
	}
	return nil
}

func parseReal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
