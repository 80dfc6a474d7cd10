// Package engine реализует диалоговый движок онбординга: сценарий шагов,
// накопление ответов, историю диалога и фиксацию анкеты на бэкенде.
package engine

import "regexp"

// StepKind определяет вид шага сценария и то, каким способом
// пользователь отвечает на него.
type StepKind string

const (
	// StepText — свободный текстовый ввод.
	StepText StepKind = "text"
	// StepMenu — выбор одного варианта из списка.
	StepMenu StepKind = "menu"
	// StepDate — выбор даты.
	StepDate StepKind = "date"
	// StepImage — загрузка изображения.
	StepImage StepKind = "image"
	// StepDocument — загрузка документа (PDF).
	StepDocument StepKind = "document"
	// StepFinal — завершающий шаг: просмотр и сохранение анкеты.
	StepFinal StepKind = "final"
)

// Step описывает один шаг сценария диалога. Шаги неизменяемы:
// сценарий задаётся один раз при создании движка.
type Step struct {
	Key      string   // ключ поля анкеты; пуст только у завершающего шага
	Kind     StepKind // вид шага
	Prompt   string   // текст вопроса, показываемый пользователю
	Options  []string // варианты ответа; заполнены только для StepMenu
	Validate func(string) bool // дополнительная проверка ответа; nil, если её нет
}

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// DefaultScript возвращает стандартный сценарий онбординга:
// восемь вопросов анкеты и завершающий шаг просмотра.
func DefaultScript() []Step {
	return []Step{
		{Key: "name", Kind: StepText, Prompt: "Welcome! Please tell me your name."},
		{
			Key:     "qualification",
			Kind:    StepMenu,
			Prompt:  "What is your qualification?",
			Options: []string{"B.Tech", "B.E", "B.Sc", "M.Tech", "M.Sc"},
		},
		{
			Key:      "phone",
			Kind:     StepText,
			Prompt:   "Enter your phone number.",
			Validate: func(value string) bool { return phonePattern.MatchString(value) },
		},
		{Key: "dob", Kind: StepDate, Prompt: "Enter your date of birth."},
		{Key: "about", Kind: StepText, Prompt: "Tell me a bit about yourself."},
		{Key: "skills", Kind: StepText, Prompt: "What are your skills?"},
		{Key: "profilePhoto", Kind: StepImage, Prompt: "Please upload a profile photo"},
		{Key: "document", Kind: StepDocument, Prompt: "Please upload a document (PDF only)"},
		{Kind: StepFinal, Prompt: "Thank you! You can now review and save your information."},
	}
}

// validateScript проверяет, что сценарий корректен: не пуст, завершается
// ровно одним StepFinal, ключи шагов уникальны, у меню есть варианты.
func validateScript(script []Step) error {
	if len(script) == 0 {
		return ErrBadScript
	}
	seen := make(map[string]bool, len(script))
	for i, step := range script {
		if step.Kind == StepFinal {
			if i != len(script)-1 {
				return ErrBadScript
			}
			continue
		}
		if step.Key == "" || seen[step.Key] {
			return ErrBadScript
		}
		seen[step.Key] = true
		if step.Kind == StepMenu && len(step.Options) == 0 {
			return ErrBadScript
		}
	}
	if script[len(script)-1].Kind != StepFinal {
		return ErrBadScript
	}
	return nil
}
