// Package progress provides progress reporting for downloads.
//
// This package renders a single live-updating status line to a console-like
// writer: a fixed-width bar plus a percentage when the total size is known,
// or a plain byte count when it is not.
//
// # Usage
//
//	reporter := progress.NewReporter(os.Stdout)
//
//	// Update as bytes arrive
//	reporter.Report("file.tar.gz", downloaded, total)
//
//	// Leave the cursor below the final bar
//	reporter.Finish()
//
// # Output Format
//
//	file.tar.gz: [████████████                  ] 41.37%
//	file.tar.gz: 1302144 bytes / unknown size
package progress
