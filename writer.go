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
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const crlf = "\r\n"

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used by the writer.
func WithLogger(logger *zap.Logger) Option {
	return func(cw *Writer) {
		cw.logger = logger
	}
}

// Writer writes a COMTRADE configuration and ASCII data file pair.
type Writer struct {
	stem       string
	hdr        *Header
	headerText string
	logger     *zap.Logger

	dat        *os.File
	nextSample int // Number of the next sample record.
	finalized  bool
}

// Create starts a new capture session. The data file is created immediately;
// the configuration file is written by Finalize.
func Create(cfg Config, opts ...Option) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cw := &Writer{
		stem: cfg.stem(),
		hdr: &Header{
			StationName:   cfg.StationName,
			RecDevID:      cfg.RecDevID,
			RevYear:       cfg.RevYear,
			LineFrequency: cfg.LineFrequency,
			Start:         cfg.Start,
			Trigger:       cfg.Trigger,
			FileType:      ASCII,
			TimeMult:      cfg.TimeMult,
		},
		logger:     zap.NewNop(),
		nextSample: 1,
	}
	for _, opt := range opts {
		opt(cw)
	}

	f, err := os.Create(cw.stem + ".dat")
	if err != nil {
		return nil, fmt.Errorf("error creating data file: %w", err)
	}
	cw.dat = f

	cw.logger.Debug("Created COMTRADE writer",
		zap.String("stem", cw.stem),
		zap.String("station", cfg.StationName),
		zap.String("revision", string(cfg.RevYear)))

	return cw, nil
}

// Header returns the configuration accumulated so far.
func (cw *Writer) Header() Header {
	hdr := *cw.hdr
	hdr.Analog = slices.Clone(cw.hdr.Analog)
	hdr.Digital = slices.Clone(cw.hdr.Digital)
	hdr.SampleRates = slices.Clone(cw.hdr.SampleRates)
	return hdr
}

// SampleCount returns the number of sample records written.
func (cw *Writer) SampleCount() int {
	return cw.nextSample - 1
}

// AddAnalogChannel registers an analog channel and returns its 1-based index.
// An empty polarity defaults to P. Channels must be added before any sample.
func (cw *Writer) AddAnalogChannel(ch AnalogChannel) (int, error) {
	if err := cw.checkRegistryOpen(); err != nil {
		return 0, err
	}
	if ch.Polarity == "" {
		ch.Polarity = Primary
	}
	if !ch.Polarity.Valid() {
		return 0, fmt.Errorf("%w: polarity %q, expected one of P, p, S, s", ErrInvalidArgument, ch.Polarity)
	}
	if err := checkFields("analog channel", ch.ID, ch.Phase, ch.Component, ch.Unit); err != nil {
		return 0, err
	}
	for _, v := range []float64{ch.A, ch.B, ch.Skew, ch.Min, ch.Max, ch.Primary, ch.Secondary} {
		if !isFinite(v) {
			return 0, fmt.Errorf("%w: analog channel %q has non-finite value %v", ErrInvalidArgument, ch.ID, v)
		}
	}

	ch.Index = len(cw.hdr.Analog) + 1
	cw.hdr.Analog = append(cw.hdr.Analog, ch)

	cw.logger.Debug("Added analog channel", zap.Int("index", ch.Index), zap.String("id", ch.ID))

	return ch.Index, nil
}

// AddDigitalChannel registers a digital channel and returns its 1-based index.
func (cw *Writer) AddDigitalChannel(ch DigitalChannel) (int, error) {
	if err := cw.checkRegistryOpen(); err != nil {
		return 0, err
	}
	if err := checkFields("digital channel", ch.ID, ch.Phase, ch.Component); err != nil {
		return 0, err
	}

	ch.Index = len(cw.hdr.Digital) + 1
	cw.hdr.Digital = append(cw.hdr.Digital, ch)

	cw.logger.Debug("Added digital channel", zap.Int("index", ch.Index), zap.String("id", ch.ID))

	return ch.Index, nil
}

func (cw *Writer) checkRegistryOpen() error {
	if cw.finalized {
		return ErrFinalized
	}
	if cw.nextSample > 1 {
		return fmt.Errorf("%w: channels cannot be added after samples have been written", ErrInvalidArgument)
	}
	return nil
}

// AddSampleRate registers a sampling rate segment ending at endSample.
// Without any segment the configuration declares a rate of 0 up to the last
// sample written. When segments are registered the last one must end at the
// final sample number, which Finalize checks.
func (cw *Writer) AddSampleRate(rate float64, endSample int) error {
	if cw.finalized {
		return ErrFinalized
	}
	if rate < 0 || !isFinite(rate) {
		return fmt.Errorf("%w: invalid sampling rate %v", ErrInvalidArgument, rate)
	}
	last := 0
	if n := len(cw.hdr.SampleRates); n > 0 {
		last = cw.hdr.SampleRates[n-1].EndSample
	}
	if endSample <= last {
		return fmt.Errorf("%w: end sample %d must be greater than %d", ErrInvalidArgument, endSample, last)
	}

	cw.hdr.SampleRates = append(cw.hdr.SampleRates, SampleRate{Rate: rate, EndSample: endSample})
	return nil
}

// SetHeaderContent sets the free text written to the .hdr file. No header
// file is written when the content is empty.
func (cw *Writer) SetHeaderContent(content string) {
	cw.headerText = content
}

// AddSampleRecord writes a single sample record to the data file. There must
// be exactly one analog value per analog channel and one digital value per
// digital channel, in index order.
func (cw *Writer) AddSampleRecord(offset float64, analog []float64, digital []int) error {
	if cw.finalized {
		return ErrFinalized
	}
	if len(analog) != len(cw.hdr.Analog) {
		return fmt.Errorf("%w: expected %d analog values, got %d", ErrMalformedRecord, len(cw.hdr.Analog), len(analog))
	}
	if len(digital) != len(cw.hdr.Digital) {
		return fmt.Errorf("%w: expected %d digital values, got %d", ErrMalformedRecord, len(cw.hdr.Digital), len(digital))
	}
	if !isFinite(offset) {
		return fmt.Errorf("%w: non-finite offset %v", ErrMalformedRecord, offset)
	}
	for i, v := range analog {
		if !isFinite(v) {
			return fmt.Errorf("%w: non-finite value %v for analog channel %d", ErrMalformedRecord, v, i+1)
		}
	}

	fields := make([]string, 0, 2+len(analog)+len(digital))
	fields = append(fields, strconv.Itoa(cw.nextSample), formatReal(offset))
	for _, v := range analog {
		fields = append(fields, formatReal(v))
	}
	for _, v := range digital {
		fields = append(fields, strconv.Itoa(v))
	}

	if _, err := io.WriteString(cw.dat, strings.Join(fields, ", ")+crlf); err != nil {
		return fmt.Errorf("error writing sample %d: %w", cw.nextSample, err)
	}

	cw.nextSample++
	return nil
}

// WriteConfig renders the configuration file to w.
func (cw *Writer) WriteConfig(w io.Writer) error {
	writer := bufio.NewWriter(w)
	hdr := cw.hdr

	lines := []string{
		strings.Join([]string{hdr.StationName, hdr.RecDevID, string(hdr.RevYear)}, ","),
		fmt.Sprintf("%d,%dA,%dD", hdr.ChannelCount(), len(hdr.Analog), len(hdr.Digital)),
	}

	for _, ch := range hdr.Analog {
		lines = append(lines, strings.Join([]string{
			strconv.Itoa(ch.Index),
			ch.ID,
			ch.Phase,
			ch.Component,
			ch.Unit,
			formatReal(ch.A),
			formatReal(ch.B),
			formatReal(ch.Skew),
			formatReal(ch.Min),
			formatReal(ch.Max),
			formatReal(ch.Primary),
			formatReal(ch.Secondary),
			string(ch.Polarity),
		}, ","))
	}

	for _, ch := range hdr.Digital {
		lines = append(lines, strings.Join([]string{
			strconv.Itoa(ch.Index),
			ch.ID,
			ch.Phase,
			ch.Component,
			strconv.Itoa(ch.NormalState),
		}, ","))
	}

	lines = append(lines, formatReal(hdr.LineFrequency))

	lines = append(lines, strconv.Itoa(len(hdr.SampleRates)))
	if len(hdr.SampleRates) == 0 {
		lines = append(lines, "0,"+strconv.Itoa(cw.SampleCount()))
	}
	for _, sr := range hdr.SampleRates {
		lines = append(lines, formatReal(sr.Rate)+","+strconv.Itoa(sr.EndSample))
	}

	lines = append(lines,
		formatTimestamp(hdr.Start),
		formatTimestamp(hdr.Trigger),
		string(hdr.FileType),
		formatMultiplier(hdr.TimeMult),
	)

	for _, line := range lines {
		if _, err := writer.WriteString(line + crlf); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// Finalize writes the configuration file, terminates and closes the data file
// and writes the header file if content was set. It must be called once; later
// calls return ErrFinalized.
func (cw *Writer) Finalize() (err error) {
	if cw.finalized {
		return ErrFinalized
	}
	if n := len(cw.hdr.SampleRates); n > 0 && cw.hdr.SampleRates[n-1].EndSample != cw.SampleCount() {
		return fmt.Errorf("%w: last sampling rate ends at sample %d but %d samples were written",
			ErrInvalidArgument, cw.hdr.SampleRates[n-1].EndSample, cw.SampleCount())
	}
	cw.finalized = true

	// The data file is released whatever happens below.
	defer func() {
		if closeErr := cw.closeData(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if err := writeFile(cw.stem+".cfg", cw.WriteConfig); err != nil {
		return fmt.Errorf("error writing configuration file: %w", err)
	}

	if _, err := cw.dat.Write([]byte{recordTerminator}); err != nil {
		return fmt.Errorf("error terminating data file: %w", err)
	}

	if cw.headerText != "" {
		if err := writeFile(cw.stem+".hdr", func(w io.Writer) error {
			_, err := io.WriteString(w, cw.headerText)
			return err
		}); err != nil {
			return fmt.Errorf("error writing header file: %w", err)
		}
	}

	cw.logger.Debug("Finalized COMTRADE writer",
		zap.String("stem", cw.stem),
		zap.Int("analog", len(cw.hdr.Analog)),
		zap.Int("digital", len(cw.hdr.Digital)),
		zap.Int("samples", cw.SampleCount()),
		zap.Bool("header", cw.headerText != ""))

	return nil
}

// Close releases the data file without writing the configuration. It is a
// no-op once the writer has been finalized or closed, so it can be deferred
// alongside Finalize.
func (cw *Writer) Close() error {
	if cw.dat == nil {
		return nil
	}
	if !cw.finalized {
		cw.logger.Warn("Closing COMTRADE writer before finalization",
			zap.String("stem", cw.stem), zap.Int("samples", cw.SampleCount()))
	}
	cw.finalized = true
	return cw.closeData()
}

func (cw *Writer) closeData() error {
	if cw.dat == nil {
		return nil
	}
	f := cw.dat
	cw.dat = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing data file: %w", err)
	}
	return nil
}

// writeFile creates (or truncates) name and fills it with render.
func writeFile(name string, render func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return render(f)
}
