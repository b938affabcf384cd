// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package comtrade

import "time"

// Revision is the COMTRADE standard revision year.
type Revision string

const (
	Revision1991 Revision = "1991"
	Revision1999 Revision = "1999"
	Revision2013 Revision = "2013"
)

// Valid reports whether r is one of the supported revision years.
func (r Revision) Valid() bool {
	switch r {
	case Revision1991, Revision1999, Revision2013:
		return true
	}
	return false
}

// Polarity marks whether an analog channel's values refer to the primary or
// secondary side of its transformer. Lower case is accepted and kept as is.
type Polarity string

const (
	Primary   Polarity = "P"
	Secondary Polarity = "S"
)

// Valid reports whether p is one of P, p, S or s.
func (p Polarity) Valid() bool {
	switch p {
	case "P", "p", "S", "s":
		return true
	}
	return false
}

// FileType is the data file format.
type FileType string

const (
	// ASCII is the only data file format supported.
	ASCII FileType = "ASCII"
)

// Header represents the contents of a COMTRADE configuration file.
type Header struct {
	StationName   string           // Name of the substation
	RecDevID      string           // Identification of the recording device
	RevYear       Revision         // Revision year of the standard
	Analog        []AnalogChannel  // Analog channels, in index order
	Digital       []DigitalChannel // Digital channels, in index order
	LineFrequency float64          // Nominal line frequency in Hz
	SampleRates   []SampleRate     // Sampling rate segments, empty if unknown
	Start         time.Time        // Time of the first data value
	Trigger       time.Time        // Time of the trigger point
	FileType      FileType         // Data file type
	TimeMult      float64          // Multiplication factor for the time offset field
}

// ChannelCount returns the total number of analog and digital channels.
func (h *Header) ChannelCount() int {
	return len(h.Analog) + len(h.Digital)
}

// AnalogChannel represents an analog channel line of the configuration file.
type AnalogChannel struct {
	Index     int      // 1-based channel index, assigned on registration
	ID        string   // Channel identifier
	Phase     string   // Channel phase identification (e.g. A, B, C)
	Component string   // Circuit component being monitored
	Unit      string   // Channel units (e.g. kV, A)
	A         float64  // Multiplier
	B         float64  // Offset adder
	Skew      float64  // Time skew between channels in microseconds
	Min       float64  // Minimum data value
	Max       float64  // Maximum data value
	Primary   float64  // Transformer primary ratio factor
	Secondary float64  // Transformer secondary ratio factor
	Polarity  Polarity // Primary or secondary data scaling
}

// NewAnalogChannel returns an analog channel with the default scaling: a=1,
// b=0, unity transformer ratios and primary polarity.
func NewAnalogChannel(id, phase, component string) AnalogChannel {
	return AnalogChannel{
		ID:        id,
		Phase:     phase,
		Component: component,
		A:         1.0,
		Primary:   1.0,
		Secondary: 1.0,
		Polarity:  Primary,
	}
}

// DigitalChannel represents a digital (status) channel line of the
// configuration file.
type DigitalChannel struct {
	Index       int    // 1-based channel index, assigned on registration
	ID          string // Channel identifier
	Phase       string // Channel phase identification
	Component   string // Circuit component being monitored
	NormalState int    // Normal state of the channel
}

// SampleRate is one segment of a piecewise constant sampling rate.
type SampleRate struct {
	Rate      float64 // Sampling rate in Hz, 0 if the time stamps are authoritative
	EndSample int     // Last sample number at this rate
}

// Sample is a single data file record.
type Sample struct {
	Number  int       // Sample number, starting at 1
	Offset  float64   // Time offset from the start timestamp
	Analog  []float64 // One value per analog channel
	Digital []int     // One value per digital channel
}
