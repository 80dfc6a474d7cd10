// Package metrics содержит счётчики и метрики, используемые в приложении.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics хранит метрики работы приложения
type Metrics struct {
	SessionsStarted   int64
	SessionsCompleted int64
	SessionsAbandoned int64
	CommitsSucceeded  int64
	CommitsFailed     int64
	APIRequests       int64
	APIErrors         int64
	AverageLatency    time.Duration
	mu                sync.RWMutex
}

// NewMetrics создает новый экземпляр метрик
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncSessionsStarted увеличивает счетчик начатых сессий онбординга
func (m *Metrics) IncSessionsStarted() { atomic.AddInt64(&m.SessionsStarted, 1) }

// IncSessionsCompleted увеличивает счетчик завершенных сессий
func (m *Metrics) IncSessionsCompleted() { atomic.AddInt64(&m.SessionsCompleted, 1) }

// IncSessionsAbandoned увеличивает счетчик прерванных сессий
func (m *Metrics) IncSessionsAbandoned() { atomic.AddInt64(&m.SessionsAbandoned, 1) }

// IncCommitsSucceeded увеличивает счетчик успешных сохранений анкеты
func (m *Metrics) IncCommitsSucceeded() { atomic.AddInt64(&m.CommitsSucceeded, 1) }

// IncCommitsFailed увеличивает счетчик неудачных сохранений анкеты
func (m *Metrics) IncCommitsFailed() { atomic.AddInt64(&m.CommitsFailed, 1) }

// IncAPIRequests увеличивает счетчик API запросов
func (m *Metrics) IncAPIRequests() { atomic.AddInt64(&m.APIRequests, 1) }

// IncAPIErrors увеличивает счетчик ошибок API
func (m *Metrics) IncAPIErrors() { atomic.AddInt64(&m.APIErrors, 1) }

// UpdateLatency обновляет среднее время ответа
func (m *Metrics) UpdateLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Простое скользящее среднее
	if m.AverageLatency == 0 {
		m.AverageLatency = d
	} else {
		m.AverageLatency = (m.AverageLatency + d) / 2
	}
}

// GetStats возвращает текущие метрики
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sessions_started":   atomic.LoadInt64(&m.SessionsStarted),
		"sessions_completed": atomic.LoadInt64(&m.SessionsCompleted),
		"sessions_abandoned": atomic.LoadInt64(&m.SessionsAbandoned),
		"commits_succeeded":  atomic.LoadInt64(&m.CommitsSucceeded),
		"commits_failed":     atomic.LoadInt64(&m.CommitsFailed),
		"api_requests":       atomic.LoadInt64(&m.APIRequests),
		"api_errors":         atomic.LoadInt64(&m.APIErrors),
		"average_latency":    m.AverageLatency.String(),
	}
}
