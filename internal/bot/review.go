// Package bot содержит обработчики завершающего шага: просмотр,
// редактирование и сохранение анкеты.
package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"onboarding_bot/internal/engine"
	"onboarding_bot/internal/models"

	"gopkg.in/telebot.v3"
)

// sendReview показывает сводку анкеты с кнопками редактирования и сохранения.
func (b *Bot) sendReview(c telebot.Context, s *Session) error {
	answers := s.Engine.Answers()

	photo := "—"
	if answers[models.KeyProfilePhoto] != "" {
		photo = "attached"
	}
	summary := fmt.Sprintf(`Name: %s
Qualification: %s
Phone: %s
Date of Birth: %s
About: %s
Skills: %s
Profile photo: %s
Document: %s`,
		answers[models.KeyName], answers[models.KeyQualification],
		answers[models.KeyPhone], answers[models.KeyDOB],
		answers[models.KeyAbout], answers[models.KeySkills],
		photo, answers[models.KeyDocument])

	menu := &telebot.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("✏️ Edit Information", btnReviewEdit.Unique)),
		menu.Row(menu.Data("💾 Save Information", btnReviewSave.Unique)),
	)
	return c.Send(summary, menu)
}

// handleReviewEdit обрабатывает кнопку "✏️ Edit Information"
func (b *Bot) handleReviewEdit(c telebot.Context) error {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Send("Your onboarding session has expired. Send /start to begin again.")
	}

	eng := s.Engine
	if err := eng.BeginEdit(); err != nil {
		if errors.Is(err, engine.ErrNotInReview) {
			return c.Send("Nothing to edit yet. Please finish all steps first.")
		}
		return nil
	}

	// По кнопке на каждое поле анкеты.
	menu := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	for _, key := range eng.FieldKeys() {
		rows = append(rows, menu.Row(menu.Data("Edit "+upperFirst(key), btnEditField.Unique, key)))
	}
	menu.Inline(rows...)
	return c.Send(engine.MsgWhichField, menu)
}

// handleReviewSave обрабатывает кнопку "💾 Save Information"
func (b *Bot) handleReviewSave(c telebot.Context) error {
	chatID := c.Sender().ID
	s, ok := b.session(chatID)
	if !ok {
		return c.Send("Your onboarding session has expired. Send /start to begin again.")
	}

	if err := s.Engine.Commit(); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			// Сохранение уже выполняется: повторное нажатие игнорируем.
			return nil
		}
		if errors.Is(err, engine.ErrNotInReview) {
			return c.Send("Nothing to save yet. Please finish all steps first.")
		}
		log.Printf("Ошибка сохранения анкеты (сессия %s): %v", s.ID, err)
		return c.Send("⚠️ There was a problem saving your details. Please try again.")
	}

	// Анкета сохранена: выдаем сессионный токен и завершаем сессию.
	b.store.Set(tokenKey(chatID), s.ID)
	if err := b.store.SaveData(); err != nil {
		log.Printf("Ошибка сохранения данных: %v", err)
	}
	b.sessions.Delete(sessionKey(chatID))
	b.metrics.IncSessionsCompleted()
	log.Printf("Сессия онбординга %s завершена для чата %d", s.ID, chatID)

	return c.Send(engine.MsgSaved)
}

// upperFirst делает первую букву строки заглавной: "phone" -> "Phone".
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
