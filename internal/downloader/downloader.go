package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	downhttp "github.com/mmynk/downer/internal/http"
	"github.com/mmynk/downer/internal/progress"
)

// Error kinds. Every error returned by Download wraps exactly one of these.
var (
	// ErrRequestFailed covers network and HTTP-layer faults.
	ErrRequestFailed = errors.New("downloader: request failed")

	// ErrFile covers filesystem faults: stat, create, open, append, write.
	ErrFile = errors.New("downloader: file error")

	// ErrInvalidRange means the resume byte-range value could not be
	// encoded as a request header. Surfaced before any request is sent.
	ErrInvalidRange = errors.New("downloader: invalid range header value")

	// ErrDirectoryNotFound is returned by CheckOutputDir, not by the
	// engine itself.
	ErrDirectoryNotFound = errors.New("downloader: output directory not found")
)

const defaultBufferSize = 32 * 1024

// Options configures a Downloader. Only the source URL is required; it is
// passed to New directly.
type Options struct {
	// Output is the destination path. Default: the final path segment
	// of the source URL.
	Output string

	// Cancel is polled between chunks. Nil means not cancellable.
	Cancel CancelFlag

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Logger receives debug-level transfer decisions.
	// Default: zap.NewNop().
	Logger *zap.Logger

	// RateLimit caps the transfer rate in bytes per second.
	// Zero means unlimited.
	RateLimit int64

	// BufferSize is the chunk read size. Default: 32KB.
	BufferSize int

	// HTTPOptions configures the HTTP client.
	HTTPOptions downhttp.Options
}

// transfer tracks the byte counters of one Download call. The counters are
// created on entry, mutated only by the stream loop, and discarded on
// return; the output file's length is the only state that survives.
type transfer struct {
	name       string
	path       string
	downloaded int64
	total      int64
}

// Downloader downloads a single URL to a single file, resuming a partial
// file via a byte-range request when one exists.
type Downloader struct {
	url      string
	output   string
	cancel   CancelFlag
	progress *progress.Reporter
	logger   *zap.Logger
	limiter  *rate.Limiter
	bufSize  int
	client   *downhttp.Client
}

// New creates a Downloader for url.
func New(url string, opts Options) *Downloader {
	output := opts.Output
	if output == "" {
		output = lastSegment(url)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := bufSize
		if opts.RateLimit > int64(burst) {
			burst = int(opts.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Downloader{
		url:      url,
		output:   output,
		cancel:   opts.Cancel,
		progress: opts.Progress,
		logger:   logger,
		limiter:  limiter,
		bufSize:  bufSize,
		client:   downhttp.NewClient(opts.HTTPOptions),
	}
}

// Output returns the resolved destination path.
func (d *Downloader) Output() string {
	return d.output
}

// Download runs one transfer to completion, cancellation, or error.
//
// If the output file does not exist the whole resource is fetched. If it
// exists, its length decides what happens next: a byte-range probe asks the
// server for the remainder, and the transfer resumes, is skipped as already
// complete, or restarts from scratch when the local file is inconsistent
// with the resource.
//
// Cancellation is not an error: Download returns nil and leaves the partial
// file intact as the resume state for a later call.
func (d *Downloader) Download(ctx context.Context) error {
	t := &transfer{
		name: lastSegment(d.output),
		path: d.output,
	}

	fi, err := os.Stat(d.output)
	if errors.Is(err, fs.ErrNotExist) {
		return d.fresh(ctx, t)
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrFile, d.output, err)
	}

	return d.resume(ctx, t, fi.Size())
}

// fresh fetches the whole resource into a newly created (or truncated)
// output file.
func (d *Downloader) fresh(ctx context.Context, t *transfer) error {
	d.logger.Debug("starting download",
		zap.String("url", d.url),
		zap.String("path", t.path))

	resp, err := d.client.Get(ctx, d.url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	t.downloaded = 0
	t.total = resp.ContentLength

	out, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrFile, t.path, err)
	}
	defer out.Close()

	d.logger.Debug("downloading",
		zap.String("name", t.name),
		zap.String("total", progress.FormatBytes(t.total)))

	return d.stream(ctx, resp.Body, out, t)
}

// resume probes the server for the bytes past length and continues the
// partial file, unless the probe shows there is nothing left to do or that
// the local file no longer matches the resource.
func (d *Downloader) resume(ctx context.Context, t *transfer, length int64) error {
	resp, err := d.client.GetFrom(ctx, d.url, length)
	if errors.Is(err, downhttp.ErrInvalidRangeOffset) {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if errors.Is(err, downhttp.ErrRangeNotSupported) {
		// Server cannot serve the remainder; the partial file is
		// useless, start over.
		d.logger.Debug("server does not support range requests, restarting",
			zap.String("url", d.url),
			zap.String("path", t.path))
		return d.fresh(ctx, t)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	total := length + resp.ContentLength
	if resp.Size > 0 {
		total = resp.Size
	}

	if total == length {
		resp.Body.Close()
		d.logger.Debug("file already downloaded", zap.String("path", t.path))
		return nil
	}

	if length > total || length == 0 {
		resp.Body.Close()
		d.logger.Debug("local file inconsistent with resource, restarting",
			zap.Int64("length", length),
			zap.Int64("total", total),
			zap.String("path", t.path))
		return d.fresh(ctx, t)
	}

	defer resp.Body.Close()

	out, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrFile, t.path, err)
	}
	defer out.Close()

	t.downloaded = length
	t.total = total

	d.logger.Debug("resuming download",
		zap.String("name", t.name),
		zap.String("remaining", progress.FormatBytes(total-length)),
		zap.String("total", progress.FormatBytes(total)))

	return d.stream(ctx, resp.Body, out, t)
}

// stream is the chunk loop shared by fresh and resumed transfers. The
// cancel flag is checked before each chunk is pulled, so a chunk is either
// fully written or never read, and the file length always equals the sum
// of whole chunks.
func (d *Downloader) stream(ctx context.Context, body io.Reader, out *os.File, t *transfer) error {
	if d.progress != nil {
		defer d.progress.Finish()
	}

	buf := make([]byte, d.bufSize)
	for {
		if d.cancel != nil && d.cancel.IsSet() {
			d.logger.Debug("cancellation observed",
				zap.String("path", t.path),
				zap.Int64("downloaded", t.downloaded))
			return nil
		}

		n, err := body.Read(buf)
		if n > 0 {
			if d.limiter != nil {
				if werr := d.limiter.WaitN(ctx, n); werr != nil {
					return fmt.Errorf("%w: rate limit wait: %v", ErrRequestFailed, werr)
				}
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: write %s: %v", ErrFile, t.path, werr)
			}
			t.downloaded += int64(n)
			if d.progress != nil {
				d.progress.Report(t.name, t.downloaded, t.total)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
		}
	}
}

// CheckOutputDir verifies that the directory that will hold path exists.
// Meant for callers to run before starting a download; the engine itself
// never calls it.
func CheckOutputDir(path string) error {
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
	}
	return nil
}

// lastSegment returns the text after the last '/' in s, or s itself when
// there is none. Used both to derive a default output path from a URL and
// to derive the progress display name from an output path.
func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
