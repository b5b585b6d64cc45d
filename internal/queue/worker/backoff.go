package worker

import (
	"math/rand/v2"
	"time"
)

const (
	receiptRetryBase = 500 * time.Millisecond
	receiptRetryMax  = 30 * time.Second
)

// ExponentialBackoff is the default delay before redelivering a receipt:
// 500ms, 1s, 2s, ... capped at 30s, plus up to 10% jitter. Receipts live in
// memory, so the cap stays well under the shutdown drain window.
func ExponentialBackoff(attempt int) time.Duration {
	return doubling(receiptRetryBase, receiptRetryMax, attempt)
}

func doubling(base, ceiling time.Duration, attempt int) time.Duration {
	delay := ceiling
	if attempt >= 0 && attempt < 32 {
		if d := base << attempt; d > 0 && d < ceiling {
			delay = d
		}
	} else if attempt < 0 {
		delay = base
	}

	if spread := int64(delay / 10); spread > 0 {
		delay += time.Duration(rand.Int64N(spread))
	}
	return delay
}
