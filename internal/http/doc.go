// Package http provides a thin HTTP client for single-file downloads.
//
// This package handles:
//   - Plain GET requests for fresh downloads
//   - Open-ended Range requests ("bytes=N-") for resumes
//   - Status-code classification into sentinel errors
//   - Content-Range parsing for the resume probe
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Fresh download
//	resp, err := client.Get(ctx, url)
//	defer resp.Body.Close()
//
//	// Resume from byte offset
//	resp, err := client.GetFrom(ctx, url, offset)
//	defer resp.Body.Close()
//	// resp.ContentLength is the declared remaining length
package http
