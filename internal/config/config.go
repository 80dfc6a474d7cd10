// Package config читает и хранит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config представляет конфигурацию приложения, загружаемую из окружения.
type Config struct {
	Telegram struct {
		Token       string
		PollTimeout time.Duration
	}

	Backend struct {
		BaseURL    string
		Timeout    time.Duration
		RetryCount int
		RetryWait  time.Duration
	}

	Storage struct {
		File         string
		SaveInterval time.Duration
	}

	Logging struct {
		File    string
		MaxSize int64
		MaxAge  time.Duration
	}

	Session struct {
		Timeout time.Duration
	}

	GracefulTimeout time.Duration
}

// NewConfig создает и возвращает конфигурацию с безопасными значениями по умолчанию.
func NewConfig() *Config {
	cfg := &Config{}

	cfg.Telegram.PollTimeout = 10 * time.Second

	cfg.Backend.Timeout = 30 * time.Second
	cfg.Backend.RetryCount = 3
	cfg.Backend.RetryWait = 500 * time.Millisecond

	cfg.Storage.File = "data/tokens.json"
	cfg.Storage.SaveInterval = 15 * time.Minute

	cfg.Logging.File = "logs/bot.log"
	cfg.Logging.MaxSize = 10 * 1024 * 1024 // 10 МБ
	cfg.Logging.MaxAge = 30 * 24 * time.Hour

	cfg.Session.Timeout = 24 * time.Hour

	cfg.GracefulTimeout = 30 * time.Second

	return cfg
}

// FromEnv создает конфигурацию со значениями по умолчанию и применяет
// переменные окружения поверх них.
func FromEnv() *Config {
	cfg := NewConfig()

	cfg.Telegram.Token = os.Getenv("TELEGRAM_TOKEN")
	cfg.Backend.BaseURL = os.Getenv("BACKEND_URL")

	if v := os.Getenv("STORAGE_FILE"); v != "" {
		cfg.Storage.File = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.Timeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("BACKEND_RETRY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.RetryCount = n
		}
	}
	if v := os.Getenv("BACKEND_RETRY_WAIT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.RetryWait = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("SESSION_TIMEOUT_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Session.Timeout = time.Duration(n) * time.Hour
		}
	}

	return cfg
}

// Validate проверяет обязательные поля конфигурации и возвращает ошибку при отсутствии.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("не указан токен Telegram")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("не указан адрес бэкенда")
	}
	return nil
}
