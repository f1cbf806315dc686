package ingest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/ewhitmore/haulfit/internal/httputil"
	"github.com/ewhitmore/haulfit/internal/models"
)

// FetchHTTP downloads the dataset from an HTTPS archive with exponential
// backoff. Client and auth errors are permanent; transient statuses are
// retried.
func FetchHTTP(url string) ([]byte, error) {
	client := httputil.NewClient()

	var body []byte
	operation := func() error {
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("fetch dataset: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("transient: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// FetchFTP retrieves the dataset from an anonymous FTP telemetry archive,
// addressed as host:port and a remote path.
func FetchFTP(host, path string) ([]byte, error) {
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", path, err)
	}
	return body, nil
}

// Fetch loads the dataset from a source string: an http(s) URL, an
// ftp://host:port/path URL, or a local file path handled by the caller.
func Fetch(source string) ([]models.Observation, error) {
	var raw []byte
	var err error
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		raw, err = FetchHTTP(source)
	case strings.HasPrefix(source, "ftp://"):
		rest := strings.TrimPrefix(source, "ftp://")
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return nil, fmt.Errorf("ftp source %q: missing path", source)
		}
		host := rest[:slash]
		if !strings.Contains(host, ":") {
			host += ":21"
		}
		raw, err = FetchFTP(host, rest[slash:])
	default:
		return nil, fmt.Errorf("unsupported source %q", source)
	}
	if err != nil {
		return nil, err
	}
	return ParseObservations(bytes.NewReader(raw))
}
