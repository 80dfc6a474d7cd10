// Package snapshot реализует общепроцессный наблюдаемый снимок последней
// успешно сохраненной анкеты: один писатель, много читателей.
package snapshot

import (
	"sync"

	"onboarding_bot/internal/models"
)

// Listener получает уведомление о каждой опубликованной анкете.
type Listener func(models.FormData)

// Observable хранит последний опубликованный снимок анкеты.
// Читатели видят либо отсутствие снимка, либо последний опубликованный
// целиком; частичные обновления невозможны.
type Observable struct {
	mu        sync.RWMutex
	current   models.FormData
	published bool
	listeners []Listener
}

// New создает пустой наблюдаемый снимок.
func New() *Observable {
	return &Observable{}
}

// Publish заменяет текущий снимок и уведомляет подписчиков.
// Подписчики вызываются вне блокировки.
func (o *Observable) Publish(form models.FormData) {
	o.mu.Lock()
	o.current = form
	o.published = true
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, l := range listeners {
		l(form)
	}
}

// Subscribe регистрирует подписчика на будущие публикации.
func (o *Observable) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// Current возвращает последний опубликованный снимок и признак того,
// была ли хоть одна публикация.
func (o *Observable) Current() (models.FormData, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.current, o.published
}
