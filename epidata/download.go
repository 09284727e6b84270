// Package epidata provides the building blocks of the data acquisition
// pipeline: downloading remote resources, parsing them into tabular results,
// and writing those results to disk in several formats.
package epidata

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/metrics"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultChunkSize is the number of bytes read at once when a progress
// callback is active. For a smooth display this should be roughly the
// connection speed in bytes per second.
const DefaultChunkSize = 1024

// DownloadOptions configures a single Download call. The zero value
// downloads in one pass with no timeout and no progress reporting.
type DownloadOptions struct {
	// ChunkSize is the read size used while reporting progress.
	// Defaults to DefaultChunkSize when zero.
	ChunkSize int
	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration
	// Progress, if set, is called after every chunk with the download
	// progress as a fraction in [0,1]. Requires the server to send a
	// Content-Length header.
	Progress func(fraction float64)
}

// Download fetches url with a GET request and returns the raw body.
// Any non-2xx status is returned as an *HTTPError.
func Download(url string, opts DownloadOptions) ([]byte, error) {
	client := &http.Client{Timeout: opts.Timeout}

	resp, err := client.Get(url)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn("Failed to close response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	var body []byte
	if opts.Progress != nil {
		body, err = readWithProgress(resp, opts)
	} else {
		body, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	metrics.DownloadBytes.Add(float64(len(body)))
	return body, nil
}

// readWithProgress reads the body in fixed-size chunks, invoking the
// progress callback with a monotonically non-decreasing fraction. The
// size reported by Content-Length counts transferred bytes, which may
// differ from the decoded body size, so progress is clamped to 1.
func readWithProgress(resp *http.Response, opts DownloadOptions) ([]byte, error) {
	total := resp.ContentLength
	if total <= 0 {
		return nil, fmt.Errorf("server did not report a content length, cannot track progress")
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	body := make([]byte, 0, total)
	chunk := make([]byte, chunkSize)
	var read int64
	for {
		n, err := io.ReadFull(resp.Body, chunk)
		body = append(body, chunk[:n]...)
		if n > 0 {
			read = min(read+int64(chunkSize), total)
			opts.Progress(float64(read) / float64(total))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// DownloadText fetches url like Download and decodes the body with the
// named character encoding (e.g. "utf-8", "iso-8859-1").
func DownloadText(url, encoding string, opts DownloadOptions) (string, error) {
	body, err := Download(url, opts)
	if err != nil {
		return "", err
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode body as %s: %w", encoding, err)
	}
	return string(decoded), nil
}
