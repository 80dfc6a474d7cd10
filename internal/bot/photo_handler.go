// Package bot обрабатывает получаемые от пользователей фотографии и документы.
package bot

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"onboarding_bot/internal/engine"

	"gopkg.in/telebot.v3"
)

// handlePhoto обрабатывает сообщения с фотографиями
func (b *Bot) handlePhoto(c telebot.Context) error {
	chatID := c.Sender().ID
	photo := c.Message().Photo
	if photo == nil {
		return c.Send("Failed to read the photo.")
	}

	// В активной сессии фотография — ответ на шаг загрузки фото.
	if s, ok := b.session(chatID); ok {
		if s.Engine.CurrentStep().Kind != engine.StepImage {
			return c.Send("A photo is not expected at this step.")
		}

		data, err := b.downloadFile(&photo.File)
		if err != nil {
			log.Printf("Ошибка обработки фотографии (сессия %s): %v", s.ID, err)
			return c.Send("⚠️ Failed to process the photo. Please try again.")
		}

		filename := fmt.Sprintf("img_%d.jpg", time.Now().Unix())
		if err := s.Engine.PickImage(base64.StdEncoding.EncodeToString(data), filename); err != nil {
			return b.sendTransient(c, s.Engine)
		}
		return b.advance(c, s)
	}

	// Вне сессии фотография означает смену фотографии профиля,
	// если пользователь уже прошел онбординг.
	token, ok := b.store.Get(tokenKey(chatID))
	if !ok {
		return c.Send("Please send /start to begin onboarding.")
	}

	data, err := b.downloadFile(&photo.File)
	if err != nil {
		log.Printf("Ошибка обработки фотографии профиля для чата %d: %v", chatID, err)
		return c.Send("⚠️ Failed to process the photo. Please try again.")
	}

	if err := b.api.UploadPhoto(token, "profilePhoto.jpg", data); err != nil {
		log.Printf("Ошибка загрузки фотографии профиля для чата %d: %v", chatID, err)
		return c.Send("⚠️ Failed to update your profile photo.")
	}
	return c.Send("Your profile photo has been updated.")
}

// handleDocument обрабатывает отправку документов
func (b *Bot) handleDocument(c telebot.Context) error {
	s, ok := b.session(c.Sender().ID)
	if !ok {
		return c.Send("Please send /start to begin onboarding.")
	}
	if s.Engine.CurrentStep().Kind != engine.StepDocument {
		return c.Send("A document is not expected at this step.")
	}

	doc := c.Message().Document
	if doc == nil {
		return c.Send("Failed to read the document.")
	}
	if !isPDF(doc) {
		return c.Send("Please upload a PDF document.")
	}

	uri := doc.FileURL
	if uri == "" {
		uri = "tg://file?id=" + doc.FileID
	}
	filename := doc.FileName
	if filename == "" {
		filename = fmt.Sprintf("doc_%d.pdf", time.Now().Unix())
	}

	if err := s.Engine.PickDocument(uri, filename); err != nil {
		return b.sendTransient(c, s.Engine)
	}
	return b.advance(c, s)
}

// isPDF проверяет, что документ является PDF файлом.
func isPDF(doc *telebot.Document) bool {
	if doc.MIME == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(doc.FileName), ".pdf")
}

// downloadFile скачивает файл Telegram во временный файл и читает его в память.
func (b *Bot) downloadFile(file *telebot.File) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "onboarding_file_*")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmpFile.Name()
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия временного файла: %w", err)
	}
	defer func() {
		if err := os.Remove(tmpName); err != nil {
			log.Printf("Ошибка удаления временного файла %s: %v", tmpName, err)
		}
	}()

	if err := b.bot.Download(file, tmpName); err != nil {
		return nil, fmt.Errorf("ошибка загрузки файла: %w", err)
	}

	data, err := os.ReadFile(tmpName)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла: %w", err)
	}
	return data, nil
}
