package transit

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"siriproxy.transitrt.org/internal/logging"
)

const maxStaticSize = 200 * 1024 * 1024

// rawGtfsData reads the GTFS zip bytes from a local path or an URL.
func rawGtfsData(source string) ([]byte, error) {
	logger := slog.Default().With(slog.String("component", "gtfs_loader"))

	if !strings.HasPrefix(source, "http") {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}

	resp, err := client.Get(source)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	if int64(len(b)) > maxStaticSize {
		return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxStaticSize)
	}
	return b, nil
}

// Load reads and parses the GTFS source into a Model.
func Load(source string) (*Model, error) {
	b, err := rawGtfsData(source)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS %s: %w", source, err)
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS %s: %w", source, err)
	}

	model, err := NewModel(staticData)
	if err != nil {
		return nil, fmt.Errorf("error building transit model for %s: %w", source, err)
	}
	return model, nil
}
