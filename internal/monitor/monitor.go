package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
	"github.com/hamed0406/storewatch/internal/metrics"
	"github.com/hamed0406/storewatch/internal/notify"
	"github.com/hamed0406/storewatch/internal/probe"
	"github.com/hamed0406/storewatch/internal/repo"
)

type Options struct {
	Cooldown time.Duration // defaults to domain.DefaultCooldown
	Clock    clock.Clock   // defaults to the wall clock
}

// Monitor runs check cycles: probe both stores, compare with the persisted
// status, alert on removals (at most once per cooldown) and persist.
//
// Cycles are serialized; a manual trigger that arrives while the scheduler
// is mid-cycle waits for it to finish and then runs against the fresh status.
type Monitor struct {
	log        *zap.Logger
	store      repo.StatusStore
	googlePlay probe.Prober
	appStore   probe.Prober
	notifier   notify.Notifier // nil: alerts disabled
	cooldown   time.Duration
	clock      clock.Clock

	mu sync.Mutex
}

func New(
	log *zap.Logger,
	store repo.StatusStore,
	googlePlay probe.Prober,
	appStore probe.Prober,
	notifier notify.Notifier,
	opts Options,
) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = domain.DefaultCooldown
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Monitor{
		log:        log,
		store:      store,
		googlePlay: googlePlay,
		appStore:   appStore,
		notifier:   notifier,
		cooldown:   opts.Cooldown,
		clock:      opts.Clock,
	}
}

// Status returns the persisted status without probing.
func (m *Monitor) Status(ctx context.Context) (domain.AppStatus, error) {
	return m.store.Load(ctx)
}

// RunCheckCycle performs one full cycle and returns the status it persisted.
// Only a storage write failure is returned as an error; the computed status
// is returned alongside it.
//
// Cancelling ctx does not abort a cycle: once started it always delivers and
// persists, so a dropped /check request cannot lose a sent alert. Probes are
// bounded by their own HTTP timeout.
func (m *Monitor) RunCheckCycle(ctx context.Context) (domain.AppStatus, error) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.clock.Now()
	log := m.log.With(zap.String("cycle_id", uuid.NewString()))

	prev, err := m.store.Load(ctx)
	if err != nil {
		log.Warn("status_load_failed", zap.Error(err))
		prev = domain.DefaultStatus()
	}

	play, app := m.probeBoth(ctx, log)

	now := m.clock.Now()
	if now.Before(prev.LastCheckedAt) {
		// wall clock went backwards; keep last_checked_at non-decreasing
		now = prev.LastCheckedAt
	}

	tr := domain.Diff(prev, play.Listing, app.Listing)
	next := domain.AppStatus{
		GooglePlay:     play.Listing.Bool(),
		AppStore:       app.Listing.Bool(),
		LastCheckedAt:  now,
		LastNotifiedAt: prev.LastNotifiedAt,
	}

	if tr.Any() {
		log.Warn("store_removal_detected",
			zap.Bool("google_play_removed", tr.GooglePlayRemoved),
			zap.Bool("app_store_removed", tr.AppStoreRemoved),
		)
		if m.alert(ctx, log, tr, prev.LastNotifiedAt, now) {
			sent := now
			next.LastNotifiedAt = &sent
		}
	}

	metrics.SetListed(probe.StoreGooglePlay, next.GooglePlay)
	metrics.SetListed(probe.StoreAppStore, next.AppStore)

	if err := m.store.Save(ctx, next); err != nil {
		log.Error("status_save_failed", zap.Error(err))
		metrics.ObserveCycle("storage_error", m.clock.Since(started))
		return next, err
	}

	metrics.ObserveCycle("ok", m.clock.Since(started))
	log.Info("check_cycle_done",
		zap.Bool("google_play", next.GooglePlay),
		zap.Bool("app_store", next.AppStore),
		zap.Time("last_checked_at", next.LastCheckedAt),
	)
	return next, nil
}

// probeBoth runs both probes concurrently and waits for both.
func (m *Monitor) probeBoth(ctx context.Context, log *zap.Logger) (play, app probe.Outcome) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		play = m.googlePlay.Probe(ctx)
	}()
	go func() {
		defer wg.Done()
		app = m.appStore.Probe(ctx)
	}()
	wg.Wait()

	m.record(log, m.googlePlay, play)
	m.record(log, m.appStore, app)
	return play, app
}

func (m *Monitor) record(log *zap.Logger, p probe.Prober, out probe.Outcome) {
	store := p.Name()
	fields := []zap.Field{
		zap.String("store", store),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("reason", out.Reason),
	}
	switch {
	case out.FailOpen:
		metrics.ObserveProbe(store, "fail_open")
		log.Warn("probe_fail_open", fields...)
	case out.Listing == domain.NotListed:
		metrics.ObserveProbe(store, "not_listed")
		log.Info("probe_not_listed", fields...)
	default:
		metrics.ObserveProbe(store, "listed")
		log.Debug("probe_listed", fields...)
	}
}

// alert delivers a removal event if the cooldown allows it and reports
// whether delivery succeeded.
func (m *Monitor) alert(ctx context.Context, log *zap.Logger, tr domain.Transition, last *time.Time, now time.Time) bool {
	if !domain.NotifyDue(last, now, m.cooldown) {
		metrics.ObserveNotification("suppressed")
		log.Info("notification_suppressed",
			zap.Time("last_notified_at", *last),
			zap.Duration("cooldown", m.cooldown),
		)
		return false
	}
	if m.notifier == nil {
		metrics.ObserveNotification("skipped")
		log.Debug("notification_skipped_unconfigured")
		return false
	}

	ev := notify.Event{
		GooglePlayRemoved: tr.GooglePlayRemoved,
		AppStoreRemoved:   tr.AppStoreRemoved,
		DetectedAt:        now,
		GooglePlayURL:     m.googlePlay.StoreURL(),
		AppStoreURL:       m.appStore.StoreURL(),
	}
	if err := m.notifier.Notify(ctx, ev); err != nil {
		metrics.ObserveNotification("failed")
		log.Error("notification_failed", zap.Error(err))
		return false
	}
	metrics.ObserveNotification("sent")
	log.Info("notification_sent",
		zap.Bool("google_play_removed", ev.GooglePlayRemoved),
		zap.Bool("app_store_removed", ev.AppStoreRemoved),
	)
	return true
}
