package models

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `datasets:
  - id: idfm
    name: Île-de-France Mobilités
    gtfs: /data/idfm/gtfs.zip
    gtfs-rt-urls:
      - https://example.com/idfm/trip-updates
      - https://example.com/idfm/alerts
    extras:
      contact: opendata@example.com
  - id: tan
    name: Nantes
    gtfs: https://example.com/tan/gtfs.zip
    gtfs-rt-urls: []
`

func TestLoadDatasetsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	datasets, err := LoadDatasets(path)
	require.NoError(t, err)
	require.Len(t, datasets.Datasets, 2)

	first := datasets.Datasets[0]
	assert.Equal(t, "idfm", first.ID)
	assert.Equal(t, "Île-de-France Mobilités", first.Name)
	assert.Equal(t, "/data/idfm/gtfs.zip", first.Gtfs)
	assert.Len(t, first.GtfsRTUrls, 2)
	assert.Equal(t, "opendata@example.com", first.Extras["contact"])

	assert.Empty(t, datasets.Datasets[1].GtfsRTUrls)
}

func TestLoadDatasetsFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleConfig))
	}))
	defer server.Close()

	datasets, err := LoadDatasets(server.URL)
	require.NoError(t, err)
	assert.Len(t, datasets.Datasets, 2)
}

func TestLoadDatasetsMissingFile(t *testing.T) {
	_, err := LoadDatasets("/does/not/exist.yml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		datasets Datasets
		wantErr  string
	}{
		{
			name:     "empty",
			datasets: Datasets{},
			wantErr:  "no dataset",
		},
		{
			name: "missing id",
			datasets: Datasets{Datasets: []DatasetInfo{
				{Name: "x", Gtfs: "gtfs.zip"},
			}},
			wantErr: "has no id",
		},
		{
			name: "missing gtfs",
			datasets: Datasets{Datasets: []DatasetInfo{
				{ID: "x", Name: "x"},
			}},
			wantErr: "has no gtfs source",
		},
		{
			name: "duplicate ids",
			datasets: Datasets{Datasets: []DatasetInfo{
				{ID: "x", Gtfs: "a.zip"},
				{ID: "x", Gtfs: "b.zip"},
			}},
			wantErr: "configured twice",
		},
		{
			name: "valid",
			datasets: Datasets{Datasets: []DatasetInfo{
				{ID: "x", Gtfs: "a.zip"},
				{ID: "y", Gtfs: "b.zip"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.datasets.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewDefaultDatasetInfo(t *testing.T) {
	info := NewDefaultDatasetInfo("gtfs.zip", []string{"http://example.com/rt"})
	assert.Equal(t, "default", info.ID)
	assert.Equal(t, "gtfs.zip", info.Gtfs)
	assert.Equal(t, []string{"http://example.com/rt"}, info.GtfsRTUrls)
	assert.NoError(t, Datasets{Datasets: []DatasetInfo{info}}.Validate())
}
