package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"siriproxy.transitrt.org/internal/logging"
)

// realtimeHTTPClient is a dedicated HTTP client for GTFS-RT feed fetching,
// configured with explicit timeouts and transport limits to avoid the pitfalls
// of http.DefaultClient (no timeout, shared global state).
// The transport is cloned from http.DefaultTransport to preserve important
// defaults (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
var realtimeHTTPClient = newRealtimeHTTPClient()

func newRealtimeHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Absolute safety net per request; the realtime tick also sets a
		// context deadline and the stricter of the two wins.
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

const maxFeedBodySize = 25 * 1024 * 1024

// FetchFeed performs one GTFS-RT fetch and stamps the payload with the fetch
// time. Any network, status or read failure is scoped to this URL only.
func FetchFeed(ctx context.Context, url string) (*GtfsRT, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GTFS-RT request: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_rt_fetcher")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtfs-rt fetch failed: %s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > maxFeedBodySize {
		return nil, fmt.Errorf("GTFS-RT response exceeds size limit of %d bytes", maxFeedBodySize)
	}

	return &GtfsRT{Data: body, FetchedAt: time.Now().UTC()}, nil
}
