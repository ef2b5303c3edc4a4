package worker

import (
	"math/rand/v2"
	"time"
)

// Backoff — политика задержки перед повторной обработкой сообщения.
//
// Экспоненциальная с джиттером: delay = Initial * Multiplier^(attempt-1),
// ограничена Max, затем умножается на случайный коэффициент
// [1-Jitter, 1+Jitter]. Джиттер разводит одновременные retry
// конкурирующих воркеров.
type Backoff struct {
	// Initial — задержка первого retry.
	Initial time.Duration

	// Max — верхняя граница задержки.
	Max time.Duration

	// Multiplier — множитель между попытками.
	Multiplier float64

	// Jitter — доля случайного разброса, 0..1.
	Jitter float64
}

// DefaultBackoff возвращает политику по умолчанию.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
	}
}

// Delay возвращает задержку перед попыткой attempt (нумерация с 1).
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if delay >= float64(maxDelay) {
			delay = float64(maxDelay)
			break
		}
	}

	if b.Jitter > 0 {
		delay *= 1 + (rand.Float64()*2-1)*b.Jitter
	}

	d := time.Duration(delay)
	if d > maxDelay {
		d = maxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}
