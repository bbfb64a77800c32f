package worker

import (
	"math"
	"time"

	"github.com/shaiso/jobqueue/internal/domain"
)

// maxBackoff — верхняя граница задержки между попытками.
const maxBackoff = time.Hour

// Backoff вычисляет задержку перед следующей попыткой.
//
// attempt — номер только что провалившейся попытки (начиная с 1):
//   - fixed:       delay = base
//   - linear:      delay = base * attempt
//   - exponential: delay = base * 2^attempt
//
// Для base=2s и первой неудачи exponential даёт 4s, для второй — 8s.
func Backoff(strategy domain.BackoffStrategy, baseSeconds float64, attempt int) time.Duration {
	if baseSeconds <= 0 {
		baseSeconds = 1
	}
	if attempt < 1 {
		attempt = 1
	}

	var seconds float64
	switch strategy {
	case domain.BackoffFixed:
		seconds = baseSeconds
	case domain.BackoffLinear:
		seconds = baseSeconds * float64(attempt)
	default:
		// exponential (и неизвестные стратегии)
		seconds = baseSeconds * math.Pow(2, float64(attempt))
	}

	delay := time.Duration(seconds * float64(time.Second))
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
