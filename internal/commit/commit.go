// Package commit связывает движок диалога с бэкендом и наблюдаемым
// снимком: сохраняет анкету и публикует её только после успеха.
package commit

import (
	"log"

	"onboarding_bot/internal/metrics"
	"onboarding_bot/internal/models"
	"onboarding_bot/internal/snapshot"
)

// Saver отправляет анкету на бэкенд.
type Saver interface {
	SaveUserData(form models.FormData) error
}

// Adapter реализует engine.Committer. При успешном сохранении анкета
// публикуется в общепроцессный снимок; при ошибке снимок не меняется.
type Adapter struct {
	saver     Saver
	published *snapshot.Observable
	metrics   *metrics.Metrics
}

// NewAdapter создает адаптер сохранения анкеты.
func NewAdapter(saver Saver, published *snapshot.Observable, m *metrics.Metrics) *Adapter {
	return &Adapter{
		saver:     saver,
		published: published,
		metrics:   m,
	}
}

// Commit сохраняет снимок анкеты на бэкенде и публикует его наблюдателям.
// Повторные вызовы с теми же данными безопасны.
func (a *Adapter) Commit(form models.FormData) error {
	if err := a.saver.SaveUserData(form); err != nil {
		if a.metrics != nil {
			a.metrics.IncCommitsFailed()
		}
		log.Printf("Ошибка сохранения анкеты: %v", err)
		return err
	}

	a.published.Publish(form)
	if a.metrics != nil {
		a.metrics.IncCommitsSucceeded()
	}
	return nil
}
