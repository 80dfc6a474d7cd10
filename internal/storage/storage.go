// Package storage реализует файл-ориентированное хранилище ключ-значение.
// Используется для сессионных токенов, по которым бот решает,
// предлагать ли пользователю онбординг повторно.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"onboarding_bot/internal/metrics"
)

// Storage представляет файловое хранилище ключ-значение с отложенной
// записью: данные сбрасываются на диск по SaveData, если были изменения.
type Storage struct {
	values  map[string]string
	mu      sync.RWMutex
	isDirty bool // Флаг изменения данных

	file string

	metrics *metrics.Metrics
}

// NewStorage создает хранилище и загружает данные из указанного JSON файла.
// Отсутствующий файл не является ошибкой: хранилище начинается пустым.
func NewStorage(file string, m *metrics.Metrics) (*Storage, error) {
	s := &Storage{
		values:  make(map[string]string),
		file:    file,
		metrics: m,
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, err
	}

	return s, nil
}

// Get возвращает значение по ключу и признак его наличия.
func (s *Storage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Set записывает значение по ключу.
func (s *Storage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.isDirty = true
}

// Remove удаляет ключ из хранилища.
func (s *Storage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.isDirty = true
}

// SaveData сохраняет данные в файл, если есть изменения.
// Запись атомарна: через временный файл с переименованием.
func (s *Storage) SaveData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isDirty {
		return nil
	}

	start := time.Now()

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0755); err != nil {
		return err
	}
	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		if s.metrics != nil {
			s.metrics.IncAPIErrors()
		}
		return err
	}
	if err := os.Rename(tmp, s.file); err != nil {
		if s.metrics != nil {
			s.metrics.IncAPIErrors()
		}
		return err
	}

	s.isDirty = false
	if s.metrics != nil {
		s.metrics.UpdateLatency(time.Since(start))
	}
	return nil
}
