// Package models holds the dataset configuration shared by the CLI, the
// dataset managers and the REST API.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatasetInfo describes one configured transit dataset: where its GTFS comes
// from and which GTFS-RT feeds enrich it.
type DatasetInfo struct {
	ID         string            `yaml:"id" json:"id"`
	Name       string            `yaml:"name" json:"name"`
	Gtfs       string            `yaml:"gtfs" json:"gtfs"`
	GtfsRTUrls []string          `yaml:"gtfs-rt-urls" json:"gtfs-rt-urls"`
	Extras     map[string]string `yaml:"extras,omitempty" json:"extras,omitempty"`
}

// NewDefaultDatasetInfo builds the single-dataset configuration used when the
// server is started with --gtfs/--url instead of a config file.
func NewDefaultDatasetInfo(gtfs string, gtfsRTUrls []string) DatasetInfo {
	return DatasetInfo{
		ID:         "default",
		Name:       "default name",
		Gtfs:       gtfs,
		GtfsRTUrls: gtfsRTUrls,
	}
}

// Datasets is the root of the YAML configuration file.
type Datasets struct {
	Datasets []DatasetInfo `yaml:"datasets" json:"datasets"`
}

// Validate checks the configuration for the mistakes that must stop startup:
// missing ids or sources, and duplicated dataset ids.
func (d Datasets) Validate() error {
	if len(d.Datasets) == 0 {
		return fmt.Errorf("configuration contains no dataset")
	}
	seen := make(map[string]bool, len(d.Datasets))
	for _, ds := range d.Datasets {
		if ds.ID == "" {
			return fmt.Errorf("dataset %q has no id", ds.Name)
		}
		if ds.Gtfs == "" {
			return fmt.Errorf("dataset %q has no gtfs source", ds.ID)
		}
		if seen[ds.ID] {
			return fmt.Errorf("dataset id %q is configured twice", ds.ID)
		}
		seen[ds.ID] = true
	}
	return nil
}

// LoadDatasets reads the YAML configuration from a local path or an URL.
func LoadDatasets(source string) (Datasets, error) {
	var reader io.ReadCloser

	if strings.HasPrefix(source, "http") {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return Datasets{}, fmt.Errorf("error downloading config file: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return Datasets{}, fmt.Errorf("failed to download config file: received HTTP status %s", resp.Status)
		}
		reader = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return Datasets{}, fmt.Errorf("error opening config file: %w", err)
		}
		reader = f
	}
	defer func() { _ = reader.Close() }()

	var datasets Datasets
	if err := yaml.NewDecoder(reader).Decode(&datasets); err != nil {
		return Datasets{}, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := datasets.Validate(); err != nil {
		return Datasets{}, err
	}
	return datasets, nil
}
