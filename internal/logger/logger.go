// Package logger предоставляет io.Writer для логирования в файл
// с ротацией по размеру и удалением устаревших архивов.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingWriter пишет лог в файл и при превышении maxSize переименовывает
// его в архив с меткой времени. Архивы старше maxAge удаляются при
// следующей ротации.
type RotatingWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	maxAge  time.Duration
	size    int64
	file    *os.File
}

// NewRotatingWriter создает писателя логов для указанного файла.
// maxSize ограничивает размер активного файла, maxAge — возраст архивов.
func NewRotatingWriter(path string, maxSize int64, maxAge time.Duration) (*RotatingWriter, error) {
	w := &RotatingWriter{
		path:    path,
		maxSize: maxSize,
		maxAge:  maxAge,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write записывает данные в активный файл, выполняя ротацию при необходимости.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.maxSize > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close закрывает активный файл логов.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate переименовывает активный файл в архив и открывает новый.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return err
		}
		w.file = nil
	}

	archived := w.archiveName(time.Now())
	if err := os.Rename(w.path, archived); err != nil && !os.IsNotExist(err) {
		return err
	}
	w.pruneArchives()

	return w.open()
}

// archiveName формирует имя архива: name_2006-01-02_15-04-05.ext
func (w *RotatingWriter) archiveName(t time.Time) string {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, t.Format("2006-01-02_15-04-05"), ext))
}

// pruneArchives удаляет архивы старше maxAge. Ошибки здесь не критичны
// и не должны мешать логированию.
func (w *RotatingWriter) pruneArchives() {
	if w.maxAge <= 0 {
		return
	}
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "_"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-w.maxAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// open открывает активный файл для дозаписи, создавая директорию при необходимости.
func (w *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// GetWriter создает и возвращает io.Writer для логирования.
func GetWriter(path string, maxSize int64, maxAge time.Duration) (io.Writer, error) {
	return NewRotatingWriter(path, maxSize, maxAge)
}
