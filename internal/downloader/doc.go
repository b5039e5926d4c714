// Package downloader implements a resumable single-file HTTP download.
//
// The engine decides between three outcomes from the on-disk state and the
// server's answer to a byte-range probe: start fresh, append to the partial
// file, or skip because the file is already complete. The partial file's
// length is the only persisted resume state; there are no sidecar files.
//
// # Usage
//
//	flag := downloader.NewFlag() // wire to SIGINT outside the engine
//	d := downloader.New(url, downloader.Options{
//	    Output:   "file.tar.gz",
//	    Cancel:   flag,
//	    Progress: progress.NewReporter(os.Stdout),
//	})
//	err := d.Download(ctx)
//
// # Cancellation
//
// The cancel flag is polled between chunks, never mid-chunk, so stopping
// leaves a file whose length is an exact chunk-aligned byte count. A
// cancelled download returns nil; the partial file is the recovery state
// for the next invocation.
package downloader
