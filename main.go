// Программа запускает Telegram-бота онбординга и фоновые службы.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onboarding_bot/internal/api"
	"onboarding_bot/internal/bot"
	"onboarding_bot/internal/commit"
	"onboarding_bot/internal/config"
	"onboarding_bot/internal/logger"
	"onboarding_bot/internal/metrics"
	"onboarding_bot/internal/models"
	"onboarding_bot/internal/snapshot"
	"onboarding_bot/internal/storage"

	"github.com/joho/godotenv"
)

func init() {
	// Загружаем переменные из .env файла
	if err := godotenv.Load(); err != nil {
		// Если файл .env не найден, используем переменные окружения системы
		log.Printf("Файл .env не найден, используем переменные окружения системы")
	}
}

// main является точкой входа в приложение
// Выполняет следующие шаги:
// 1. Проверяет наличие необходимых переменных окружения
// 2. Инициализирует конфигурацию и логирование
// 3. Создает хранилище токенов и клиент бэкенда
// 4. Создает наблюдаемый снимок анкеты и адаптер сохранения
// 5. Создает и запускает Telegram бота
// 6. Запускает периодическое сохранение данных
// 7. Ожидает сигнал завершения для graceful shutdown
func main() {
	// Создаем контекст с поддержкой отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Проверяем наличие всех необходимых переменных окружения
	requiredEnvVars := []string{"TELEGRAM_TOKEN", "BACKEND_URL"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Отсутствует обязательная переменная окружения: %s", envVar)
		}
	}

	// Инициализация конфигурации приложения
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	// Инициализируем метрики
	m := metrics.NewMetrics()

	// Настройка логирования
	logWriter, err := logger.GetWriter(cfg.Logging.File, cfg.Logging.MaxSize, cfg.Logging.MaxAge)
	if err != nil {
		log.Fatalf("Ошибка создания писателя логов: %v", err)
	}
	log.SetOutput(logWriter)

	// Инициализация хранилища сессионных токенов
	store, err := storage.NewStorage(cfg.Storage.File, m)
	if err != nil {
		log.Fatalf("Ошибка инициализации хранилища: %v", err)
	}

	// Создание клиента бэкенда
	client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, m)
	client.SetRetryPolicy(cfg.Backend.RetryCount, cfg.Backend.RetryWait)

	// Общепроцессный снимок последней сохраненной анкеты
	published := snapshot.New()
	published.Subscribe(func(form models.FormData) {
		log.Printf("Анкета сохранена: %s", form.Name)
	})

	// Адаптер сохранения: бэкенд + публикация снимка
	committer := commit.NewAdapter(client, published, m)

	// Создание и запуск бота
	telegramBot, err := bot.NewBot(
		cfg.Telegram.Token,
		cfg.Telegram.PollTimeout,
		cfg.Session.Timeout,
		store,
		client,
		committer,
		published,
		m,
	)
	if err != nil {
		log.Fatalf("Ошибка создания бота: %v", err)
	}

	telegramBot.Start()

	// Периодическое сохранение данных
	saveTicker := time.NewTicker(cfg.Storage.SaveInterval)
	go func() {
		defer saveTicker.Stop()
		for {
			select {
			case <-saveTicker.C:
				if err := store.SaveData(); err != nil {
					log.Printf("Ошибка сохранения данных: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Настройка graceful shutdown:
	// - Подписываемся на SIGINT (Ctrl+C) и SIGTERM (kill)
	// - При получении сигнала останавливаем фоновые процессы
	//   и сохраняем данные перед выходом
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Получен сигнал завершения, останавливаем работу...")

	// Отменяем контекст
	cancel()

	// Создаем таймер для graceful shutdown
	shutdownTimer := time.NewTimer(cfg.GracefulTimeout)
	defer shutdownTimer.Stop()

	// Канал для ожидания завершения сохранения
	done := make(chan bool)

	go func() {
		if err := store.SaveData(); err != nil {
			log.Printf("Ошибка сохранения данных при завершении: %v", err)
		}
		done <- true
	}()

	// Ждем либо завершения сохранения, либо таймаута
	select {
	case <-done:
		log.Println("Данные успешно сохранены")
	case <-shutdownTimer.C:
		log.Println("Превышено время graceful shutdown")
	}

	telegramBot.Stop()
}
