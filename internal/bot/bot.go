// Package bot реализует Telegram-интерфейс диалога онбординга поверх
// диалогового движка: по одной сессии движка на чат.
package bot

import (
	"strconv"
	"time"

	"onboarding_bot/internal/api"
	"onboarding_bot/internal/engine"
	"onboarding_bot/internal/metrics"
	"onboarding_bot/internal/snapshot"
	"onboarding_bot/internal/storage"

	"github.com/patrickmn/go-cache"
	"gopkg.in/telebot.v3"
)

// Inline-кнопки. Полезные данные (вариант меню, ключ поля) передаются
// в callback как payload.
var (
	btnOption     = telebot.Btn{Unique: "opt"}         // выбор варианта на шаге-меню
	btnEditField  = telebot.Btn{Unique: "edit"}        // выбор поля для редактирования
	btnReviewEdit = telebot.Btn{Unique: "review_edit"} // "✏️ Edit Information"
	btnReviewSave = telebot.Btn{Unique: "review_save"} // "💾 Save Information"
)

// Session хранит состояние онбординга одного чата.
type Session struct {
	ID        string // идентификатор для корреляции логов
	Engine    *engine.Engine
	StartedAt time.Time
}

// Bot представляет Telegram бота онбординга.
type Bot struct {
	bot       *telebot.Bot
	sessions  *cache.Cache // ключ — строковый chat ID; истекшие сессии удаляются сами
	store     *storage.Storage
	api       *api.Client
	committer engine.Committer
	published *snapshot.Observable
	metrics   *metrics.Metrics
}

// NewBot создает нового бота. sessionTimeout ограничивает время жизни
// незавершенной сессии онбординга.
func NewBot(
	token string,
	pollTimeout time.Duration,
	sessionTimeout time.Duration,
	store *storage.Storage,
	apiClient *api.Client,
	committer engine.Committer,
	published *snapshot.Observable,
	m *metrics.Metrics,
) (*Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:       b,
		sessions:  cache.New(sessionTimeout, time.Hour),
		store:     store,
		api:       apiClient,
		committer: committer,
		published: published,
		metrics:   m,
	}

	bot.setupHandlers()
	return bot, nil
}

// setupHandlers настраивает обработчики команд
func (b *Bot) setupHandlers() {
	// Стандартные команды
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/cancel", b.handleCancel)
	b.bot.Handle("/profile", b.handleProfile)

	// Обработчики inline-кнопок
	b.bot.Handle(&btnOption, b.handleOption)
	b.bot.Handle(&btnEditField, b.handleEditField)
	b.bot.Handle(&btnReviewEdit, b.handleReviewEdit)
	b.bot.Handle(&btnReviewSave, b.handleReviewSave)

	// Обработчик текстовых сообщений
	b.bot.Handle(telebot.OnText, b.handleText)

	// Обработчик фотографий
	b.bot.Handle(telebot.OnPhoto, b.handlePhoto)

	// Обработчик документов
	b.bot.Handle(telebot.OnDocument, b.handleDocument)
}

// Start запускает бота
func (b *Bot) Start() {
	go b.bot.Start()
}

// Stop останавливает бота
func (b *Bot) Stop() {
	b.bot.Stop()
}

// session возвращает активную сессию онбординга для чата.
func (b *Bot) session(chatID int64) (*Session, bool) {
	v, ok := b.sessions.Get(sessionKey(chatID))
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func tokenKey(chatID int64) string {
	return "token:" + strconv.FormatInt(chatID, 10)
}
