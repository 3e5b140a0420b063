package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"siriproxy.transitrt.org/internal/clock"
	"siriproxy.transitrt.org/internal/errorsink"
	"siriproxy.transitrt.org/internal/logging"
	"siriproxy.transitrt.org/internal/metrics"
	"siriproxy.transitrt.org/internal/models"
	"siriproxy.transitrt.org/internal/transit"
)

const (
	defaultHorizon          = 48 * time.Hour
	defaultScheduleInterval = 24 * time.Hour
	defaultRealtimeInterval = 60 * time.Second
	scheduleRetryDelay      = 5 * time.Minute
	realtimeTickTimeout     = 30 * time.Second
)

// ManagerConfig tunes one dataset's reload workers. Zero values fall back to
// the production defaults.
type ManagerConfig struct {
	Horizon          time.Duration
	ScheduleInterval time.Duration
	RealtimeInterval time.Duration
	Clock            clock.Clock
	Sink             *errorsink.Sink
	Metrics          *metrics.Metrics
}

// Manager runs the lifecycle of one dataset: it owns the holder and the two
// periodic workers that feed it. All mutation of published state goes through
// the holder; the workers never share mutable data with readers.
type Manager struct {
	Info   models.DatasetInfo
	Holder *Holder

	horizon          time.Duration
	scheduleInterval time.Duration
	realtimeInterval time.Duration
	clock            clock.Clock
	sink             *errorsink.Sink
	metrics          *metrics.Metrics

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewManager creates a manager for a configured dataset. Start must be called
// before the holder serves meaningful data.
func NewManager(info models.DatasetInfo, cfg ManagerConfig) *Manager {
	if cfg.Horizon == 0 {
		cfg.Horizon = defaultHorizon
	}
	if cfg.ScheduleInterval == 0 {
		cfg.ScheduleInterval = defaultScheduleInterval
	}
	if cfg.RealtimeInterval == 0 {
		cfg.RealtimeInterval = defaultRealtimeInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &Manager{
		Info:             info,
		horizon:          cfg.Horizon,
		scheduleInterval: cfg.ScheduleInterval,
		realtimeInterval: cfg.RealtimeInterval,
		clock:            cfg.Clock,
		sink:             cfg.Sink,
		metrics:          cfg.Metrics,
		shutdownChan:     make(chan struct{}),
	}
}

// Start performs the initial base build and the initial realtime tick
// synchronously, then launches the periodic workers. The initial realtime
// tick runs even when the base build failed, so /gtfs-rt serves an (empty)
// overlay as soon as the HTTP surface accepts traffic. Start only errors on
// programming mistakes; a failed base build is published, not returned.
func (m *Manager) Start(ctx context.Context) error {
	if m.Holder != nil {
		return fmt.Errorf("manager for dataset %s already started", m.Info.ID)
	}
	logger := m.logger()

	ds, err := m.buildDataset()
	if err != nil {
		logging.LogError(logger, "initial base schedule build failed", err)
		m.captureError(err)
	}
	m.Holder = NewHolder(ds, err, m.Info.GtfsRTUrls)
	m.recordBaseBuild(ds, err)

	tickCtx, cancel := context.WithTimeout(ctx, realtimeTickTimeout)
	m.updateRealtime(tickCtx)
	cancel()

	m.wg.Add(2)
	go m.updateBaseSchedulePeriodically()
	go m.updateRealtimePeriodically()

	return nil
}

// Shutdown stops the periodic workers and waits for them to exit.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() { close(m.shutdownChan) })
	m.wg.Wait()
}

func (m *Manager) logger() *slog.Logger {
	return slog.Default().With(slog.String("dataset", m.Info.ID))
}

func (m *Manager) captureError(err error) {
	if m.sink != nil {
		m.sink.CaptureError(m.Info.ID, err)
	}
}

// currentPeriod computes the rolling generation window starting today.
func (m *Manager) currentPeriod() Period {
	return Period{
		Begin:   transit.DateOf(m.clock.Now().Local()),
		Horizon: m.horizon,
	}
}

func (m *Manager) buildDataset() (*Dataset, error) {
	return Build(m.Info, m.currentPeriod())
}

func (m *Manager) recordBaseBuild(ds *Dataset, err error) {
	if m.metrics == nil {
		return
	}
	if err != nil {
		m.metrics.DatasetReloadsTotal.WithLabelValues(m.Info.ID, "failure").Inc()
		return
	}
	m.metrics.DatasetReloadsTotal.WithLabelValues(m.Info.ID, "success").Inc()
	m.metrics.TimetableConnections.WithLabelValues(m.Info.ID).Set(float64(len(ds.Timetable.Connections)))
}

// updateBaseSchedulePeriodically rebuilds the base dataset on the schedule
// interval. A failed build is published as the holder's error and retried
// after a short delay; the periodic tick keeps running regardless.
func (m *Manager) updateBaseSchedulePeriodically() {
	defer m.wg.Done()

	logger := m.logger().With(slog.String("component", "schedule_reloader"))

	ticker := time.NewTicker(m.scheduleInterval)
	defer ticker.Stop()

	var retryCh <-chan time.Time
	reload := func() {
		logging.LogOperation(logger, "reloading_base_schedule")
		ds, err := m.buildDataset()
		m.Holder.SetBaseSchedule(ds, err)
		m.recordBaseBuild(ds, err)
		if err != nil {
			logging.LogError(logger, "impossible to update dataset", err)
			m.captureError(err)
			retryCh = time.After(scheduleRetryDelay)
			return
		}
		retryCh = nil
		logging.LogOperation(logger, "base_schedule_updated",
			slog.Int("connections", len(ds.Timetable.Connections)))
	}

	for {
		select {
		case <-ticker.C:
			reload()
		case <-retryCh:
			logging.LogOperation(logger, "retrying_base_schedule_reload")
			reload()
		case <-m.shutdownChan:
			logging.LogOperation(logger, "shutting_down_base_schedule_updates")
			return
		}
	}
}

// updateRealtimePeriodically refreshes the realtime overlay on the realtime
// interval. Ticks never overlap; a tick that exceeds its period delays the
// next one.
func (m *Manager) updateRealtimePeriodically() {
	defer m.wg.Done()

	logger := m.logger().With(slog.String("component", "realtime_reloader"))

	ticker := time.NewTicker(m.realtimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), realtimeTickTimeout)
			ctx = logging.WithLogger(ctx, logger)
			m.updateRealtime(ctx)
			cancel()
		case <-m.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}

// updateRealtime performs one realtime tick: fetch all configured feeds,
// aggregate whatever succeeded, resolve trip updates against the current base
// and publish a new overlay bound to that base.
func (m *Manager) updateRealtime(ctx context.Context) {
	logger := logging.FromContext(ctx).With(slog.String("component", "realtime_reloader"), slog.String("dataset", m.Info.ID))

	base, baseErr := m.Holder.Dataset()

	rawFeeds := m.fetchAllFeeds(ctx, logger)

	feeds := make([]*gtfsproto.FeedMessage, 0, len(rawFeeds))
	for _, raw := range rawFeeds {
		feed, err := DecodeFeed(raw.Data)
		if err != nil {
			logging.LogError(logger, "dropping undecodable feed", err)
			if m.metrics != nil {
				m.metrics.FeedDecodeFailuresTotal.WithLabelValues(m.Info.ID).Inc()
			}
			continue
		}
		feeds = append(feeds, feed)
	}

	aggregated, err := AggregateFeeds(feeds, m.clock.Now())
	if err != nil {
		logging.LogError(logger, "unable to aggregate feeds", err)
		m.captureError(err)
		return
	}

	updatedTimetable := NewUpdatedTimetable()
	if baseErr == nil {
		modelUpdate := BuildModelUpdate(base.Model, feeds, base.Timezone, m.clock.Now(), logger)
		var incoherentStops int
		updatedTimetable, incoherentStops = applyTripUpdates(base, modelUpdate, logger)
		if incoherentStops > 0 {
			if m.sink != nil {
				m.sink.CaptureMessage(m.Info.ID,
					fmt.Sprintf("%d stop ids incoherent with base schedule", incoherentStops))
			}
			if m.metrics != nil {
				m.metrics.CoherenceWarningsTotal.WithLabelValues(m.Info.ID).Add(float64(incoherentStops))
			}
		}
		if m.metrics != nil {
			m.metrics.AppliedUpdatesTotal.WithLabelValues(m.Info.ID).Add(float64(len(updatedTimetable.RealTimeConnections)))
		}
	}

	m.Holder.SetRealtime(&RealTimeDataset{
		Base:             base,
		BaseErr:          baseErr,
		GtfsRT:           aggregated,
		ProviderURLs:     m.Info.GtfsRTUrls,
		UpdatedTimetable: updatedTimetable,
	})

	logging.LogOperation(logger, "realtime_updated",
		slog.Int("feeds", len(feeds)),
		slog.Int("updated_connections", len(updatedTimetable.RealTimeConnections)))
}

// fetchAllFeeds fetches every configured URL in parallel. A failing URL is
// logged and dropped; it never poisons its siblings. Results keep the
// configuration order of their URLs.
func (m *Manager) fetchAllFeeds(ctx context.Context, logger *slog.Logger) []*GtfsRT {
	results := make([]*GtfsRT, len(m.Info.GtfsRTUrls))

	var wg sync.WaitGroup
	for i, url := range m.Info.GtfsRTUrls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			feed, err := FetchFeed(ctx, url)
			if err != nil {
				logging.LogError(logger, "error fetching GTFS-RT feed", err, slog.String("url", url))
				if m.metrics != nil {
					m.metrics.RealtimeFetchesTotal.WithLabelValues(url, "failure").Inc()
				}
				return
			}
			if m.metrics != nil {
				m.metrics.RealtimeFetchesTotal.WithLabelValues(url, "success").Inc()
			}
			results[i] = feed
		}(i, url)
	}
	wg.Wait()

	fetched := make([]*GtfsRT, 0, len(results))
	for _, r := range results {
		if r != nil {
			fetched = append(fetched, r)
		}
	}
	return fetched
}
