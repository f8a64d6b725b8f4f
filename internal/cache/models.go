package cache

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PageMeta records the server-side pagination totals from the last
// successful report listing, so cached output can show them offline.
type PageMeta struct {
	Page      int
	PerPage   int
	Total     int
	Pages     int
	FetchedAt time.Time
}

// Download is one entry in the local download ledger.
type Download struct {
	ID        string
	ReportID  string
	Filename  string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}
