package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func itemWith(current, min, critical float64, expiry *time.Time) *StockItem {
	return &StockItem{
		CurrentStock:       current,
		MinStockLevel:      min,
		CriticalStockLevel: critical,
		ExpiryDate:         expiry,
		IsActive:           true,
	}
}

func daysFrom(now time.Time, days int) *time.Time {
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item *StockItem
		want Level
	}{
		{"ample stock", itemWith(100, 10, 3, nil), LevelNormal},
		{"zero quantity", itemWith(0, 10, 3, nil), LevelOutOfStock},
		{"at critical threshold", itemWith(3, 10, 3, nil), LevelCritical},
		{"below critical threshold", itemWith(2, 10, 3, nil), LevelCritical},
		{"at minimum threshold", itemWith(10, 10, 3, nil), LevelLow},
		{"between critical and minimum", itemWith(5, 10, 3, nil), LevelLow},
		{"just above minimum", itemWith(10.5, 10, 3, nil), LevelNormal},
		{"expired yesterday", itemWith(100, 10, 3, daysFrom(now, -1)), LevelExpired},
		{"expires within window", itemWith(100, 10, 3, daysFrom(now, 5)), LevelExpiring},
		{"expires at window boundary", itemWith(100, 10, 3, daysFrom(now, 7)), LevelExpiring},
		{"expires beyond window", itemWith(100, 10, 3, daysFrom(now, 30)), LevelNormal},
		{"zero quantity outranks expiry", itemWith(0, 10, 3, daysFrom(now, -1)), LevelOutOfStock},
		{"expiry outranks low stock", itemWith(5, 10, 3, daysFrom(now, 2)), LevelExpiring},
		{"expired outranks critical stock", itemWith(2, 10, 3, daysFrom(now, -5)), LevelExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.item, now))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := itemWith(4, 10, 3, daysFrom(now, 5))

	first := Classify(item, now)
	second := Classify(item, now)
	assert.Equal(t, first, second)
}

// Classification must be well-defined even when critical > min.
func TestClassify_InvertedThresholds(t *testing.T) {
	now := time.Now()

	assert.Equal(t, LevelCritical, Classify(itemWith(8, 5, 10, nil), now))
	assert.Equal(t, LevelNormal, Classify(itemWith(12, 5, 10, nil), now))
}

func TestDaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, DaysUntilExpiry(itemWith(1, 0, 0, daysFrom(now, 5)), now))
	assert.Equal(t, -3, DaysUntilExpiry(itemWith(1, 0, 0, daysFrom(now, -3)), now))
	assert.Greater(t, DaysUntilExpiry(itemWith(1, 0, 0, nil), now), 100000)
}
