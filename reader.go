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
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Open parses a COMTRADE configuration file.
func Open(r io.Reader) (*Header, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}
	next := func(what string) ([]string, error) {
		if len(lines) == 0 {
			return nil, fmt.Errorf("error reading %s: %w", what, io.ErrUnexpectedEOF)
		}
		fields := strings.Split(lines[0], ",")
		lines = lines[1:]
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, nil
	}

	hdr := &Header{}

	// Station line. Pre-1999 files omit the revision year.
	fields, err := next("station line")
	if err != nil {
		return nil, err
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("error parsing station line: %w", ErrMalformedRecord)
	}
	hdr.StationName = fields[0]
	hdr.RecDevID = fields[1]
	hdr.RevYear = Revision1991
	if len(fields) > 2 && fields[2] != "" {
		hdr.RevYear = Revision(fields[2])
	}

	// Channel counts.
	fields, err = next("channel counts")
	if err != nil {
		return nil, err
	}
	if len(fields) != 3 {
		return nil, fmt.Errorf("error parsing channel counts: %w", ErrMalformedRecord)
	}
	total, err := parseInt(fields[0])
	if err != nil {
		return nil, fmt.Errorf("error parsing total channel count: %w", err)
	}
	analogCount, err := parseInt(strings.TrimSuffix(strings.ToUpper(fields[1]), "A"))
	if err != nil {
		return nil, fmt.Errorf("error parsing analog channel count: %w", err)
	}
	digitalCount, err := parseInt(strings.TrimSuffix(strings.ToUpper(fields[2]), "D"))
	if err != nil {
		return nil, fmt.Errorf("error parsing digital channel count: %w", err)
	}
	if total != analogCount+digitalCount {
		return nil, fmt.Errorf("error parsing channel counts: %d != %dA + %dD: %w", total, analogCount, digitalCount, ErrMalformedRecord)
	}

	hdr.Analog = make([]AnalogChannel, analogCount)
	for i := 0; i < analogCount; i++ {
		fields, err := next("analog channel")
		if err != nil {
			return nil, err
		}
		if hdr.Analog[i], err = parseAnalogChannel(fields); err != nil {
			return nil, fmt.Errorf("error parsing analog channel %d: %w", i+1, err)
		}
	}

	hdr.Digital = make([]DigitalChannel, digitalCount)
	for i := 0; i < digitalCount; i++ {
		fields, err := next("digital channel")
		if err != nil {
			return nil, err
		}
		if hdr.Digital[i], err = parseDigitalChannel(fields); err != nil {
			return nil, fmt.Errorf("error parsing digital channel %d: %w", i+1, err)
		}
	}

	fields, err = next("line frequency")
	if err != nil {
		return nil, err
	}
	if hdr.LineFrequency, err = parseReal(fields[0]); err != nil {
		return nil, fmt.Errorf("error parsing line frequency: %w", err)
	}

	fields, err = next("sampling rate count")
	if err != nil {
		return nil, err
	}
	nrates, err := parseInt(fields[0])
	if err != nil {
		return nil, fmt.Errorf("error parsing sampling rate count: %w", err)
	}
	// A count of zero is still followed by a single "0,<last sample>" line.
	segments := max(nrates, 1)
	for i := 0; i < segments; i++ {
		fields, err := next("sampling rate")
		if err != nil {
			return nil, err
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("error parsing sampling rate %d: %w", i+1, ErrMalformedRecord)
		}
		var sr SampleRate
		if sr.Rate, err = parseReal(fields[0]); err != nil {
			return nil, fmt.Errorf("error parsing sampling rate %d: %w", i+1, err)
		}
		if sr.EndSample, err = parseInt(fields[1]); err != nil {
			return nil, fmt.Errorf("error parsing sampling rate %d end sample: %w", i+1, err)
		}
		if nrates > 0 {
			hdr.SampleRates = append(hdr.SampleRates, sr)
		}
	}

	for _, ts := range []struct {
		what string
		dst  *time.Time
	}{
		{"start timestamp", &hdr.Start},
		{"trigger timestamp", &hdr.Trigger},
	} {
		if len(lines) == 0 {
			return nil, fmt.Errorf("error reading %s: %w", ts.what, io.ErrUnexpectedEOF)
		}
		if *ts.dst, err = parseTimestamp(lines[0]); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", ts.what, err)
		}
		lines = lines[1:]
	}

	fields, err = next("file type")
	if err != nil {
		return nil, err
	}
	hdr.FileType = FileType(strings.ToUpper(fields[0]))
	if hdr.FileType != ASCII {
		return nil, fmt.Errorf("unsupported data file type %q: %w", fields[0], ErrInvalidArgument)
	}

	// The time multiplier was only introduced in 1999.
	hdr.TimeMult = 1.0
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		if hdr.TimeMult, err = parseReal(lines[0]); err != nil {
			return nil, fmt.Errorf("error parsing time multiplier: %w", err)
		}
	}

	return hdr, nil
}

func parseAnalogChannel(fields []string) (AnalogChannel, error) {
	if len(fields) < 10 {
		return AnalogChannel{}, ErrMalformedRecord
	}

	ch := AnalogChannel{
		ID:        fields[1],
		Phase:     fields[2],
		Component: fields[3],
		Unit:      fields[4],
		Primary:   1.0,
		Secondary: 1.0,
		Polarity:  Primary,
	}

	var err error
	if ch.Index, err = parseInt(fields[0]); err != nil {
		return ch, err
	}
	reals := []*float64{&ch.A, &ch.B, &ch.Skew, &ch.Min, &ch.Max}
	// 1999 and later add the transformer ratios and polarity.
	if len(fields) >= 13 {
		reals = append(reals, &ch.Primary, &ch.Secondary)
		ch.Polarity = Polarity(fields[12])
	}
	for i, dst := range reals {
		if *dst, err = parseReal(fields[5+i]); err != nil {
			return ch, err
		}
	}

	return ch, nil
}

func parseDigitalChannel(fields []string) (DigitalChannel, error) {
	if len(fields) < 3 {
		return DigitalChannel{}, ErrMalformedRecord
	}

	var ch DigitalChannel
	var err error
	if ch.Index, err = parseInt(fields[0]); err != nil {
		return ch, err
	}
	ch.ID = fields[1]

	// 1991 files carry only n,ch_id,y.
	if len(fields) == 3 {
		ch.NormalState, err = parseInt(fields[2])
		return ch, err
	}
	if len(fields) < 5 {
		return ch, ErrMalformedRecord
	}
	ch.Phase = fields[2]
	ch.Component = fields[3]
	ch.NormalState, err = parseInt(fields[4])
	return ch, err
}

// Reader reads sample records from an ASCII data file.
type Reader struct {
	hdr     *Header
	scanner *bufio.Scanner
	done    bool
}

// NewReader returns a Reader for the data file described by hdr.
func NewReader(hdr *Header, dat io.Reader) *Reader {
	scanner := bufio.NewScanner(dat)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{hdr: hdr, scanner: scanner}
}

// Read returns the next sample record, or io.EOF once the terminator or the
// end of the data file is reached.
func (cr *Reader) Read() (Sample, error) {
	for !cr.done && cr.scanner.Scan() {
		line := cr.scanner.Text()
		if i := strings.IndexByte(line, recordTerminator); i >= 0 {
			line = line[:i]
			cr.done = true
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return cr.parseSample(line)
	}
	if err := cr.scanner.Err(); err != nil {
		return Sample{}, fmt.Errorf("error reading sample data: %w", err)
	}
	return Sample{}, io.EOF
}

func (cr *Reader) parseSample(line string) (Sample, error) {
	fields := strings.Split(line, ",")
	analogCount, digitalCount := len(cr.hdr.Analog), len(cr.hdr.Digital)
	if len(fields) != 2+analogCount+digitalCount {
		return Sample{}, fmt.Errorf("expected %d fields, got %d: %w", 2+analogCount+digitalCount, len(fields), ErrMalformedRecord)
	}

	s := Sample{
		Analog:  make([]float64, analogCount),
		Digital: make([]int, digitalCount),
	}

	var err error
	if s.Number, err = parseInt(fields[0]); err != nil {
		return Sample{}, fmt.Errorf("error parsing sample number: %w", err)
	}
	if s.Offset, err = parseReal(fields[1]); err != nil {
		return Sample{}, fmt.Errorf("error parsing sample %d offset: %w", s.Number, err)
	}
	for i := range s.Analog {
		if s.Analog[i], err = parseReal(fields[2+i]); err != nil {
			return Sample{}, fmt.Errorf("error parsing sample %d analog value %d: %w", s.Number, i+1, err)
		}
	}
	for i := range s.Digital {
		if s.Digital[i], err = parseInt(fields[2+analogCount+i]); err != nil {
			return Sample{}, fmt.Errorf("error parsing sample %d digital value %d: %w", s.Number, i+1, err)
		}
	}

	return s, nil
}

// ReadFiles loads the configuration, every sample record and the optional
// header text of the file set at stem.
func ReadFiles(stem string) (*Header, []Sample, string, error) {
	cfg, err := os.Open(stem + ".cfg")
	if err != nil {
		return nil, nil, "", err
	}
	defer cfg.Close()

	hdr, err := Open(cfg)
	if err != nil {
		return nil, nil, "", err
	}

	dat, err := os.Open(stem + ".dat")
	if err != nil {
		return nil, nil, "", err
	}
	defer dat.Close()

	var samples []Sample
	cr := NewReader(hdr, dat)
	for {
		s, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, "", err
		}
		samples = append(samples, s)
	}

	text, err := os.ReadFile(stem + ".hdr")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, "", fmt.Errorf("error reading header file: %w", err)
	}

	return hdr, samples, string(text), nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}
