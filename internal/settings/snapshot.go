package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

// snapshot is the in-memory copy of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var (
	snapshotMu sync.RWMutex
	current    = snapshot{values: map[string]json.RawMessage{}}
)

// StoreDBConfig replaces the settings snapshot.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		copied[key] = append(json.RawMessage(nil), value...)
	}
	snapshotMu.Lock()
	current = snapshot{updatedAt: updatedAt.UTC(), values: copied}
	snapshotMu.Unlock()
}

// DBConfigValue returns the raw value stored for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	value, ok := current.values[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), value...), true
}

// DBConfigUpdatedAt returns the newest updated_at seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return current.updatedAt
}

// Refresh rebuilds the in-memory settings snapshot from the DB.
func Refresh(ctx context.Context, conn *gorm.DB) error {
	var rows []models.Setting
	if errFind := conn.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if rowUpdatedAt := row.UpdatedAt.UTC(); rowUpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = rowUpdatedAt
		}
	}

	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// IntValue returns the non-negative integer stored under key, or fallback.
func IntValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	if value, okParse := ParseNonNegativeInt(raw); okParse {
		return value
	}
	return fallback
}

// VoteCost returns the configured vote cost in coins.
func VoteCost() int64 {
	cost := IntValue(VoteCostKey, DefaultVoteCost)
	if cost <= 0 {
		return DefaultVoteCost
	}
	return int64(cost)
}

// ParseNonNegativeInt accepts a JSON number or numeric string >= 0.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var number float64
	if errNumber := json.Unmarshal(raw, &number); errNumber != nil {
		var text string
		if errText := json.Unmarshal(raw, &text); errText != nil {
			return 0, false
		}
		if errParse := json.Unmarshal([]byte(strings.TrimSpace(text)), &number); errParse != nil {
			return 0, false
		}
	}
	if number < 0 || number != math.Trunc(number) || number > math.MaxInt32 {
		return 0, false
	}
	return int(number), true
}

// ParseBool accepts a JSON bool or a "true"/"false" string.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	var value bool
	if errBool := json.Unmarshal(raw, &value); errBool == nil {
		return value, true
	}
	var text string
	if errText := json.Unmarshal(raw, &text); errText != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

// ParseString accepts a JSON string.
func ParseString(raw json.RawMessage) (string, bool) {
	var text string
	if errText := json.Unmarshal(bytes.TrimSpace(raw), &text); errText != nil {
		return "", false
	}
	return strings.TrimSpace(text), true
}
