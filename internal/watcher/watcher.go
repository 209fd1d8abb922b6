package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
	"gorm.io/gorm"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultQueryTimeout = 3 * time.Second
)

// SettingsWatcher polls the settings table and reloads the in-memory snapshot
// when another instance (or an admin edit) changes it.
type SettingsWatcher struct {
	db           *gorm.DB
	pollInterval time.Duration

	mu        sync.Mutex
	latestAt  time.Time
	latestKey string
	hasLatest bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSettingsWatcher builds a watcher polling every interval.
func NewSettingsWatcher(db *gorm.DB, interval time.Duration) *SettingsWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &SettingsWatcher{db: db, pollInterval: interval}
}

// Start performs an initial load and launches the polling goroutine.
func (w *SettingsWatcher) Start(ctx context.Context) error {
	if w == nil || w.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errPoll := w.Poll(ctx, true); errPoll != nil {
		return errPoll
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx)
	}()
	log.Infof("settings watcher started (poll_interval=%s)", w.pollInterval)
	return nil
}

// Stop cancels polling and waits for the goroutine to exit.
func (w *SettingsWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *SettingsWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errPoll := w.Poll(ctx, false); errPoll != nil && !errors.Is(errPoll, context.Canceled) {
				log.WithError(errPoll).Warn("settings watcher: poll failed")
			}
		}
	}
}

// Poll reloads the snapshot when the newest settings row changed, or always
// when force is set.
func (w *SettingsWatcher) Poll(ctx context.Context, force bool) error {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	// latestRow captures the newest setting timestamp for change detection.
	type latestRow struct {
		Key       string    `gorm:"column:key"`
		UpdatedAt time.Time `gorm:"column:updated_at"`
	}
	var latest latestRow
	hasLatest := true
	errLatest := w.db.WithContext(qctx).
		Model(&models.Setting{}).
		Select("key", "updated_at").
		Order("updated_at DESC, key DESC").
		Limit(1).
		Take(&latest).Error
	if errLatest != nil {
		if !errors.Is(errLatest, gorm.ErrRecordNotFound) {
			return errLatest
		}
		hasLatest = false
	}
	latestKey := strings.TrimSpace(latest.Key)
	latestAt := latest.UpdatedAt.UTC()

	w.mu.Lock()
	unchanged := w.hasLatest == hasLatest && w.latestAt.Equal(latestAt) && w.latestKey == latestKey
	w.mu.Unlock()
	if unchanged && !force {
		return nil
	}

	if errRefresh := internalsettings.Refresh(qctx, w.db); errRefresh != nil {
		return errRefresh
	}
	log.WithFields(log.Fields{
		"latest_updated_at": latestAt.Format(time.RFC3339Nano),
		"latest_key":        latestKey,
	}).Debug("settings watcher: snapshot reloaded")

	w.mu.Lock()
	w.latestAt = latestAt
	w.latestKey = latestKey
	w.hasLatest = hasLatest
	w.mu.Unlock()
	return nil
}
