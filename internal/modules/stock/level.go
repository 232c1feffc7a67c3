package stock

import "time"

// Level is the derived classification of a stock item.
type Level string

const (
	LevelNormal     Level = "NORMAL"
	LevelLow        Level = "LOW"
	LevelCritical   Level = "CRITICAL"
	LevelOutOfStock Level = "OUT_OF_STOCK"
	LevelExpiring   Level = "EXPIRING"
	LevelExpired    Level = "EXPIRED"
)

// ExpiryWarningDays is the lookahead window for flagging near-expiry items.
const ExpiryWarningDays = 7

// Classify derives the item's level from quantity, thresholds, and expiry.
// Pure function of its inputs; first matching rule wins:
//
//  1. zero quantity
//  2. already expired
//  3. expiring within ExpiryWarningDays (outranks stock-level checks — an
//     item with ample stock but two days of shelf life is still flagged)
//  4. at or below critical threshold
//  5. at or below minimum threshold
func Classify(item *StockItem, now time.Time) Level {
	if item.CurrentStock == 0 {
		return LevelOutOfStock
	}
	if item.ExpiryDate != nil {
		if item.ExpiryDate.Before(now) {
			return LevelExpired
		}
		if DaysUntilExpiry(item, now) <= ExpiryWarningDays {
			return LevelExpiring
		}
	}
	if item.CurrentStock <= item.CriticalStockLevel {
		return LevelCritical
	}
	if item.CurrentStock <= item.MinStockLevel {
		return LevelLow
	}
	return LevelNormal
}

// DaysUntilExpiry returns whole days of shelf life left, truncated.
// Negative once the expiry date has passed. Items without an expiry date
// report a large positive value so callers can compare unconditionally.
func DaysUntilExpiry(item *StockItem, now time.Time) int {
	if item.ExpiryDate == nil {
		return 1 << 30
	}
	return int(item.ExpiryDate.Sub(now).Hours() / 24)
}
