package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// BarWidth is the width of the rendered progress bar in glyphs.
const BarWidth = 30

// Reporter renders download progress as a single live-updating status line.
//
// When the total size is known, each Report overwrites the previous line in
// place with a carriage return. When the total is unknown, each Report emits
// a fresh newline-terminated line instead.
type Reporter struct {
	out io.Writer

	mu    sync.Mutex
	dirty bool // a bar line is currently on screen
}

// NewReporter creates a reporter writing to out.
// If out is nil, os.Stdout is used.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

// Report renders the current progress for name.
//
// total == 0 means the total size is unknown; downloaded is then reported
// as a plain byte count. Otherwise a fixed-width bar is drawn, with the
// fill and percentage clamped to 100%.
func (r *Reporter) Report(name string, downloaded, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if total == 0 {
		fmt.Fprintf(r.out, "%s: %d bytes / unknown size\n", name, downloaded)
		return
	}

	fraction := float64(downloaded) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * BarWidth)

	fmt.Fprintf(r.out, "\r%s: [%s%s] %.2f%%",
		name,
		strings.Repeat("█", filled),
		strings.Repeat(" ", BarWidth-filled),
		fraction*100,
	)
	r.dirty = true
}

// Finish terminates the live status line with a newline, leaving the cursor
// below the final bar. It is a no-op if no bar line is on screen.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return
	}
	fmt.Fprintln(r.out)
	r.dirty = false
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ParseBytes parses a human-readable byte string (e.g., "256MB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = strings.TrimSpace(s)

	switch {
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
