// Package tracker detects case status changes.
//
// For every requested receipt number the tracker fetches the current status
// and compares it to the last known status from the history. A receipt that
// has never been seen before always counts as changed.
package tracker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/log"
	"github.com/fatih/color"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/casewatch/internal/cache"
	"github.com/Norgate-AV/casewatch/internal/receipt"
	"github.com/Norgate-AV/casewatch/internal/uscis"
)

// Fetcher looks up the current status of one receipt number
type Fetcher interface {
	Fetch(ctx context.Context, number string) (uscis.Result, error)
}

// Update is the result of checking one receipt number during a run
type Update struct {
	Timestamp   time.Time
	Receipt     string
	Status      string
	Description string

	// Changed is true when Status differs from the last known status,
	// or when there is no last known status.
	Changed bool
}

// Entry converts the update into a history row
func (u Update) Entry() cache.Entry {
	return cache.Entry{
		Timestamp:   u.Timestamp,
		Receipt:     u.Receipt,
		Status:      u.Status,
		Description: u.Description,
	}
}

// Changed returns the updates flagged as changed, in order
func Changed(updates []Update) []Update {
	var changed []Update
	for _, u := range updates {
		if u.Changed {
			changed = append(changed, u)
		}
	}

	return changed
}

// Entries converts updates into history rows, in order
func Entries(updates []Update) []cache.Entry {
	entries := make([]cache.Entry, 0, len(updates))
	for _, u := range updates {
		entries = append(entries, u.Entry())
	}

	return entries
}

// Tracker evaluates receipt numbers against cached statuses
type Tracker struct {
	fetcher   Fetcher
	log       *log.Logger
	out       io.Writer
	now       func() time.Time
	failFast  bool
	highlight *color.Color
}

// Option configures a Tracker
type Option func(*Tracker)

// WithOutput sets where the per-receipt summary lines are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(t *Tracker) {
		t.out = w
	}
}

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithFailFast stops evaluation at the first fetch error
func WithFailFast(failFast bool) Option {
	return func(t *Tracker) {
		t.failFast = failFast
	}
}

// WithColor forces highlighting of changed cases on or off.
// Without it, color follows terminal detection.
func WithColor(enabled bool) Option {
	return func(t *Tracker) {
		if enabled {
			t.highlight.EnableColor()
		} else {
			t.highlight.DisableColor()
		}
	}
}

// New creates a tracker
func New(fetcher Fetcher, logger *log.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher:   fetcher,
		log:       logger,
		out:       os.Stdout,
		now:       time.Now,
		highlight: color.New(color.FgYellow, color.Bold),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Evaluate checks every receipt number in order and returns one update per
// valid receipt. Invalid receipt numbers are skipped with a warning.
//
// A failed lookup produces no update. Unless fail-fast is set, the remaining
// receipts are still checked and all lookup errors are returned together
// with the updates that did succeed.
func (t *Tracker) Evaluate(ctx context.Context, receipts []string, cached cache.Statuses) ([]Update, error) {
	var (
		updates []Update
		errs    error
	)

	for _, number := range receipts {
		if !receipt.Valid(number) {
			t.log.WithField("receipt", number).Warn("receipt number is not in the correct format (3 letters + 10 digits), skipping")
			continue
		}

		result, err := t.fetcher.Fetch(ctx, number)
		if err != nil {
			t.log.WithField("receipt", number).WithError(err).Error("status check failed")
			errs = multierr.Append(errs, err)

			if t.failFast || ctx.Err() != nil {
				return updates, errs
			}

			continue
		}

		last, seen := cached[number]

		u := Update{
			Timestamp:   t.now().Local().Truncate(time.Second),
			Receipt:     number,
			Status:      result.Status,
			Description: result.Description,
			Changed:     !seen || result.Status != last,
		}

		t.print(u)
		updates = append(updates, u)
	}

	return updates, errs
}

func (t *Tracker) print(u Update) {
	line := fmt.Sprintf("%s: %s, %s", u.Receipt, u.Status, u.Description)
	if u.Changed {
		line = t.highlight.Sprint(line)
	}

	fmt.Fprintln(t.out, line)
}
