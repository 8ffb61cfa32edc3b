// Package cache provides the case status history for casewatch.
//
// The history is a CSV file that is only ever appended to. Each run adds one
// row per queried receipt number:
//
//	timestamp,receipt,status,description
//
// The cache view is derived from that file on every run: rows are read top
// to bottom and a later row for the same receipt replaces an earlier one,
// so the last row in the file wins regardless of its timestamp. Only the
// status is kept in the view; timestamps and descriptions live in the file.
package cache

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/caarlos0/log"
	"github.com/spf13/afero"

	"github.com/Norgate-AV/casewatch/internal/receipt"
)

// Store reads and appends the history log
type Store struct {
	fs   afero.Fs
	path string
	log  *log.Logger
}

// New creates a store for the history file at path on the OS filesystem
func New(path string, logger *log.Logger) *Store {
	return NewWithFs(afero.NewOsFs(), path, logger)
}

// NewWithFs creates a store backed by an arbitrary filesystem
func NewWithFs(fsys afero.Fs, path string, logger *log.Logger) *Store {
	return &Store{
		fs:   fsys,
		path: path,
		log:  logger,
	}
}

// Path returns the location of the history file
func (s *Store) Path() string {
	return s.path
}

// Load builds the last known status per receipt from the history file.
// A missing file is a cold start and yields an empty map.
func (s *Store) Load() (Statuses, error) {
	statuses := make(Statuses)

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.WithField("file", s.path).Warn("no history file yet, assuming empty cache")
			return statuses, nil
		}

		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	starts := lineStarts(data)
	for line := 1; line <= len(starts); {
		next, err := s.scan(data[starts[line-1]:], line-1, statuses)
		if err != nil {
			return nil, err
		}

		if next == 0 {
			break
		}

		line = next
	}

	return statuses, nil
}

// scan reads rows from data into statuses. base is the number of lines that
// precede data in the file. It returns the line to resume from when a quoted
// field was left open, since the reader consumes the rest of the input
// looking for the closing quote; 0 means data was read to the end.
func (s *Store) scan(data []byte, base int, statuses Statuses) (int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	// Row width is validated below, not by the reader
	r.FieldsPerRecord = -1

	for {
		row, err := r.Read()
		if err == io.EOF {
			return 0, nil
		}

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.log.WithField("line", base+parseErr.StartLine).WithError(parseErr.Err).Warn("invalid row in history file")
				if parseErr.Line > parseErr.StartLine {
					return base + parseErr.StartLine + 1, nil
				}

				continue
			}

			return 0, fmt.Errorf("failed to read history file: %w", err)
		}

		line, _ := r.FieldPos(0)

		// Receipt number lives in column 1, status in column 2
		if len(row) < 2 || !receipt.Valid(row[1]) {
			s.log.WithField("line", base+line).WithField("row", row).Warn("invalid row in history file")
			continue
		}

		status := ""
		if len(row) > 2 {
			status = row[2]
		}

		statuses[row[1]] = status
	}
}

// lineStarts returns the byte offset at which each line of data begins
func lineStarts(data []byte) []int {
	starts := []int{0}
	for i, b := range data {
		if b == '\n' && i+1 < len(data) {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// Append adds entries to the end of the history file, creating it if needed.
// Existing content is never touched.
func (s *Store) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	f, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file for append: %w", err)
	}

	w := csv.NewWriter(f)
	for _, e := range entries {
		if err := w.Write(e.Row()); err != nil {
			f.Close()
			return fmt.Errorf("failed to write history row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush history file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}

	return nil
}
