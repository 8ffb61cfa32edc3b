package cache

import "time"

// TimeFormat is the layout of the timestamp column: ISO-8601 with a numeric
// offset, so UTC is written as +00:00 rather than Z.
const TimeFormat = "2006-01-02T15:04:05-07:00"

// Entry represents one row of the history log
type Entry struct {
	// Timestamp when the status was fetched, truncated to whole seconds
	Timestamp time.Time

	// Receipt is the USCIS receipt number (e.g., "EAC9999999999")
	Receipt string

	// Status is the short status headline
	Status string

	// Description is the detailed status text
	Description string
}

// Row renders the entry as the four CSV columns of the history log
func (e Entry) Row() []string {
	return []string{
		e.Timestamp.Format(TimeFormat),
		e.Receipt,
		e.Status,
		e.Description,
	}
}

// Statuses maps a receipt number to its last known status
type Statuses map[string]string
