package reportstore

import "sync"

// Op names a logical store operation tracked by the request-lifecycle flags.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpDelete Op = "delete"
)

// Flags tracks {loading, error} per logical operation so callers can render
// spinners and messages without polling the store. Loading is raised
// synchronously before the underlying request starts and lowered in a
// deferred cleanup regardless of outcome; the error message is cleared at the
// start of every new attempt and set only when that attempt fails.
type Flags struct {
	mu      sync.Mutex
	loading map[Op]bool
	errs    map[Op]string
}

func newFlags() *Flags {
	return &Flags{
		loading: make(map[Op]bool),
		errs:    make(map[Op]string),
	}
}

// begin marks op as in flight and clears any stale error from a previous
// attempt.
func (f *Flags) begin(op Op) {
	f.mu.Lock()
	f.loading[op] = true
	delete(f.errs, op)
	f.mu.Unlock()
}

// end lowers the loading flag. It runs deferred so the guarantee holds on
// every exit path.
func (f *Flags) end(op Op) {
	f.mu.Lock()
	f.loading[op] = false
	f.mu.Unlock()
}

// fail records a user-facing error message for op.
func (f *Flags) fail(op Op, msg string) {
	f.mu.Lock()
	f.errs[op] = msg
	f.mu.Unlock()
}

// Loading reports whether op has a request in flight.
func (f *Flags) Loading(op Op) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading[op]
}

// Err returns the user-facing message of the last failed attempt of op, or ""
// when the last attempt succeeded or none ran.
func (f *Flags) Err(op Op) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}
