package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"onboarding_bot/internal/engine"
	"onboarding_bot/internal/models"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gopkg.in/telebot.v3"
)

// Форматы даты, принимаемые на шаге даты рождения.
var dateLayouts = []string{"2006-01-02", "02.01.2006"}

// handleStart обрабатывает команду /start
func (b *Bot) handleStart(c telebot.Context) error {
	chatID := c.Sender().ID

	// Пользователь с сессионным токеном онбординг уже прошел.
	if _, ok := b.store.Get(tokenKey(chatID)); ok {
		return c.Send("You have already completed onboarding. Send /profile to view your saved information.")
	}

	// Сессия уже идет: повторяем текущий вопрос.
	if s, ok := b.session(chatID); ok {
		return b.sendCurrent(c, s)
	}

	eng, err := engine.NewEngine(engine.DefaultScript(), b.committer)
	if err != nil {
		log.Printf("Ошибка создания движка диалога: %v", err)
		return c.Send("Something went wrong. Please try again later.")
	}

	s := &Session{
		ID:        uuid.NewString(),
		Engine:    eng,
		StartedAt: time.Now(),
	}
	b.sessions.Set(sessionKey(chatID), s, cache.DefaultExpiration)
	b.metrics.IncSessionsStarted()
	log.Printf("Начата сессия онбординга %s для чата %d", s.ID, chatID)

	return b.sendCurrent(c, s)
}

// handleHelp обрабатывает команду /help
func (b *Bot) handleHelp(c telebot.Context) error {
	return c.Send(`Available commands:
/start - Begin onboarding
/profile - Show your saved information
/cancel - Abandon the current onboarding session
/help - Show this message`)
}

// handleCancel обрабатывает команду /cancel
func (b *Bot) handleCancel(c telebot.Context) error {
	chatID := c.Sender().ID
	if _, ok := b.session(chatID); !ok {
		return c.Send("No onboarding session in progress.")
	}
	b.sessions.Delete(sessionKey(chatID))
	b.metrics.IncSessionsAbandoned()
	return c.Send("Onboarding cancelled. Send /start to begin again.")
}

// handleProfile обрабатывает команду /profile: показывает профиль с
// бэкенда, а при недоступности — последний сохраненный снимок анкеты.
func (b *Bot) handleProfile(c telebot.Context) error {
	chatID := c.Sender().ID

	if token, ok := b.store.Get(tokenKey(chatID)); ok {
		profile, err := b.api.GetProfile(token)
		if err == nil {
			return c.Send(fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\nAddress: %s",
				profile.Name, profile.Email, profile.Phone, profile.Address))
		}
		log.Printf("Ошибка получения профиля для чата %d: %v", chatID, err)
	}

	form, ok := b.published.Current()
	if !ok {
		return c.Send("No saved information yet. Send /start to begin onboarding.")
	}
	return c.Send(formatForm(form))
}

// handleText обрабатывает текстовые сообщения
func (b *Bot) handleText(c telebot.Context) error {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Send("Please send /start to begin onboarding.")
	}

	eng := s.Engine
	switch eng.CurrentStep().Kind {
	case engine.StepDate:
		date, err := parseDate(c.Text())
		if err != nil {
			return c.Send(engine.MsgInvalidInput)
		}
		if err := eng.PickDate(date); err != nil {
			return b.sendTransient(c, eng)
		}

	case engine.StepImage:
		return c.Send("Please send a photo to continue.")

	case engine.StepDocument:
		return c.Send("Please send a PDF document to continue.")

	case engine.StepFinal:
		// На завершающем шаге текст не ожидается: повторяем сводку.
		return b.sendReview(c, s)

	default:
		if err := eng.Submit(c.Text()); err != nil {
			return b.sendTransient(c, eng)
		}
	}

	return b.advance(c, s)
}

// handleOption обрабатывает выбор варианта на шаге-меню
func (b *Bot) handleOption(c telebot.Context) error {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Send("Your onboarding session has expired. Send /start to begin again.")
	}

	option := c.Callback().Data
	if err := s.Engine.Choose(option); err != nil {
		if errors.Is(err, engine.ErrWrongStep) {
			return nil
		}
		return b.sendTransient(c, s.Engine)
	}

	// Скрываем кнопки меню после выбора, отметив выбранный вариант.
	if err := c.Edit(c.Message().Text + "\n✅ " + option); err != nil {
		log.Printf("Ошибка скрытия кнопок меню: %v", err)
	}

	return b.advance(c, s)
}

// handleEditField обрабатывает выбор поля для редактирования
func (b *Bot) handleEditField(c telebot.Context) error {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Send("Your onboarding session has expired. Send /start to begin again.")
	}

	key := c.Callback().Data
	if err := s.Engine.EditField(key); err != nil {
		if errors.Is(err, engine.ErrNotEditing) {
			return c.Send("Press \"✏️ Edit Information\" first.")
		}
		return c.Send(engine.MsgInvalidInput)
	}

	return b.sendPrompt(c, s.Engine.CurrentStep())
}

// advance отправляет следующий вопрос после принятого ответа.
func (b *Bot) advance(c telebot.Context, s *Session) error {
	step := s.Engine.CurrentStep()
	if step.Kind == engine.StepFinal {
		if err := c.Send(engine.MsgAllSet); err != nil {
			return err
		}
		return b.sendReview(c, s)
	}
	return b.sendPrompt(c, step)
}

// sendCurrent показывает пользователю текущий шаг сессии.
func (b *Bot) sendCurrent(c telebot.Context, s *Session) error {
	step := s.Engine.CurrentStep()
	if step.Kind == engine.StepFinal {
		return b.sendReview(c, s)
	}
	return b.sendPrompt(c, step)
}

// sendPrompt отправляет вопрос шага с подходящим способом ввода.
func (b *Bot) sendPrompt(c telebot.Context, step engine.Step) error {
	switch step.Kind {
	case engine.StepMenu:
		menu := &telebot.ReplyMarkup{}
		var rows []telebot.Row
		for _, option := range step.Options {
			rows = append(rows, menu.Row(menu.Data(option, btnOption.Unique, option)))
		}
		menu.Inline(rows...)
		return c.Send(step.Prompt, menu)

	case engine.StepDate:
		return c.Send(step.Prompt + "\nSend it as YYYY-MM-DD or DD.MM.YYYY.")

	default:
		return c.Send(step.Prompt)
	}
}

// sendTransient показывает валидационную ошибку движка, пока она активна.
func (b *Bot) sendTransient(c telebot.Context, eng *engine.Engine) error {
	if msg := eng.TransientError(); msg != "" {
		return c.Send(msg)
	}
	return nil
}

// parseDate разбирает дату, введенную пользователем текстом.
func parseDate(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, trimmed); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("нераспознанная дата: %q", text)
}

// formatForm формирует сводку сохраненной анкеты.
func formatForm(form models.FormData) string {
	return fmt.Sprintf(`Saved Information:
Name: %s
Qualification: %s
Phone: %s
Date of Birth: %s
About: %s
Skills: %s
Document: %s`,
		form.Name, form.Qualification, form.Phone, form.DOB,
		form.About, form.Skills, form.Document)
}
