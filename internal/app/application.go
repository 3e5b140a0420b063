// Package app wires the shared dependencies of the HTTP handlers, helpers,
// and middleware: configuration, logging, metrics and the per-dataset
// managers.
package app

import (
	"context"
	"log/slog"
	"sort"

	"siriproxy.transitrt.org/internal/appconf"
	"siriproxy.transitrt.org/internal/clock"
	"siriproxy.transitrt.org/internal/dataset"
	"siriproxy.transitrt.org/internal/errorsink"
	"siriproxy.transitrt.org/internal/metrics"
	"siriproxy.transitrt.org/internal/models"
)

// Application holds the dependencies shared across the HTTP surface and the
// background workers.
type Application struct {
	Config   appconf.Config
	Datasets models.Datasets
	Logger   *slog.Logger
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Sink     *errorsink.Sink

	managers map[string]*dataset.Manager
}

// New builds the application and one manager per configured dataset. Nothing
// is loaded yet; call Start.
func New(
	config appconf.Config,
	datasets models.Datasets,
	logger *slog.Logger,
	clk clock.Clock,
	m *metrics.Metrics,
	sink *errorsink.Sink,
) *Application {
	application := &Application{
		Config:   config,
		Datasets: datasets,
		Logger:   logger,
		Clock:    clk,
		Metrics:  m,
		Sink:     sink,
		managers: make(map[string]*dataset.Manager, len(datasets.Datasets)),
	}
	for _, info := range datasets.Datasets {
		application.managers[info.ID] = dataset.NewManager(info, dataset.ManagerConfig{
			Clock:   clk,
			Sink:    sink,
			Metrics: m,
		})
	}
	return application
}

// Start loads every dataset and launches its workers. It returns once all
// initial builds and initial realtime ticks are done, so the HTTP surface
// starts with data (or explicit per-dataset errors) in place.
func (application *Application) Start(ctx context.Context) error {
	for _, manager := range application.managers {
		if err := manager.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops all dataset workers.
func (application *Application) Shutdown() {
	for _, manager := range application.managers {
		manager.Shutdown()
	}
}

// Manager resolves a dataset id.
func (application *Application) Manager(id string) (*dataset.Manager, bool) {
	manager, ok := application.managers[id]
	return manager, ok
}

// Managers lists the dataset managers in stable id order.
func (application *Application) Managers() []*dataset.Manager {
	ids := make([]string, 0, len(application.managers))
	for id := range application.managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	managers := make([]*dataset.Manager, 0, len(ids))
	for _, id := range ids {
		managers = append(managers, application.managers[id])
	}
	return managers
}
