package downloader

import "sync/atomic"

// CancelFlag is a cooperatively polled cancellation signal. The engine only
// ever observes it; constructing and setting the flag is the caller's job.
type CancelFlag interface {
	IsSet() bool
}

// Flag is a one-shot CancelFlag. Once set it stays set.
type Flag struct {
	set atomic.Bool
}

// NewFlag creates an unset flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Set triggers the flag. Safe to call from any goroutine, including a
// signal handler goroutine; repeated calls are no-ops.
func (f *Flag) Set() {
	f.set.Store(true)
}

// IsSet reports whether the flag has been triggered.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}
