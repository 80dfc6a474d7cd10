package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"onboarding_bot/internal/models"
)

// Сообщения движка, показываемые пользователю.
const (
	// MsgEmptyField — ответ пуст после обрезки пробелов.
	MsgEmptyField = "Please fill the field."
	// MsgInvalidInput — ответ не прошел проверку шага.
	MsgInvalidInput = "Invalid input, please try again."
	// MsgAllSet — все шаги пройдены, доступен просмотр и сохранение.
	MsgAllSet = "All set! You can now review and save your information."
	// MsgWhichField — предложение выбрать поле для редактирования.
	MsgWhichField = "Which field would you like to edit?"
	// MsgSaved — анкета успешно сохранена.
	MsgSaved = "Information saved!"
)

// DateLayout — каноническая текстовая форма даты в анкете,
// например "Sat May 01 1999".
const DateLayout = "Mon Jan 02 2006"

// ErrorDisplayWindow — время, в течение которого валидационная ошибка
// показывается рядом с полем ввода, после чего гаснет сама.
const ErrorDisplayWindow = 2 * time.Second

// Ошибки движка. Валидационные ошибки дополнительно фиксируются как
// временное сообщение, доступное через TransientError.
var (
	ErrBadScript    = fmt.Errorf("bad script")
	ErrEmptyField   = fmt.Errorf("empty field")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrWrongStep    = fmt.Errorf("operation does not match current step")
	ErrNotInReview  = fmt.Errorf("not in review")
	ErrNotEditing   = fmt.Errorf("not editing")
	ErrUnknownField = fmt.Errorf("unknown field")
	ErrBusy         = fmt.Errorf("commit in progress")
)

// Committer сохраняет снимок анкеты во внешней системе.
// Реализация обязана публиковать снимок наблюдателям только при успехе.
type Committer interface {
	Commit(form models.FormData) error
}

// Engine — диалоговый движок онбординга. Продвигается по сценарию,
// проверяет и накапливает ответы, ведет историю диалога и по команде
// пользователя фиксирует анкету через Committer.
//
// Движок рассчитан на один диалог (один чат); все операции
// синхронны и защищены общим мьютексом.
type Engine struct {
	mu         sync.Mutex
	script     []Step
	answers    *AnswerStore
	transcript []models.Message
	cursor     int
	finalIdx   int
	editing    bool
	editReturn bool // ответ после EditField возвращает к просмотру
	committing bool
	committed  bool
	errText    string
	errAt      time.Time
	now        func() time.Time
	committer  Committer
}

// NewEngine создает движок для заданного сценария. История диалога
// сразу начинается с вопроса первого шага.
func NewEngine(script []Step, committer Committer) (*Engine, error) {
	if err := validateScript(script); err != nil {
		return nil, err
	}
	steps := make([]Step, len(script))
	copy(steps, script)

	return &Engine{
		script:     steps,
		answers:    newAnswerStore(steps),
		transcript: []models.Message{{Side: models.SideSystem, Text: steps[0].Prompt}},
		finalIdx:   len(steps) - 1,
		now:        time.Now,
		committer:  committer,
	}, nil
}

// Submit принимает текстовый ответ на текущий шаг. Пустой после обрезки
// ответ и ответ, не прошедший проверку шага, отклоняются с временной
// ошибкой; курсор и ответы при этом не меняются.
func (e *Engine) Submit(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submit(value)
}

// Choose принимает выбор варианта на шаге-меню. Эквивалент Submit;
// скрытие кнопок меню — забота слоя интерфейса.
func (e *Engine) Choose(option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.script[e.cursor].Kind != StepMenu {
		return ErrWrongStep
	}
	return e.submit(option)
}

func (e *Engine) submit(value string) error {
	step := e.script[e.cursor]
	if step.Kind == StepFinal {
		return ErrWrongStep
	}
	if strings.TrimSpace(value) == "" {
		e.fail(MsgEmptyField)
		return ErrEmptyField
	}
	if step.Kind == StepMenu && !containsOption(step.Options, value) {
		e.fail(MsgInvalidInput)
		return ErrInvalidInput
	}
	if step.Validate != nil && !step.Validate(value) {
		e.fail(MsgInvalidInput)
		return ErrInvalidInput
	}
	e.accept(step.Key, value, value)
	return nil
}

// PickImage принимает изображение, выбранное пользователем: payload —
// содержимое в base64, filename — имя файла для истории диалога.
func (e *Engine) PickImage(payload, filename string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := e.script[e.cursor]
	if step.Kind != StepImage {
		return ErrWrongStep
	}
	if payload == "" || strings.TrimSpace(filename) == "" {
		e.fail(MsgEmptyField)
		return ErrEmptyField
	}
	e.accept(step.Key, payload, filename)
	return nil
}

// PickDocument принимает документ, выбранный пользователем: uri — ссылка
// на файл, filename — имя файла для истории диалога.
func (e *Engine) PickDocument(uri, filename string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := e.script[e.cursor]
	if step.Kind != StepDocument {
		return ErrWrongStep
	}
	if uri == "" || strings.TrimSpace(filename) == "" {
		e.fail(MsgEmptyField)
		return ErrEmptyField
	}
	e.accept(step.Key, uri, filename)
	return nil
}

// PickDate принимает дату, выбранную пользователем, и записывает её
// каноническую форму (DateLayout). Даты в будущем отклоняются:
// дата рождения не может быть позже сегодняшнего дня.
func (e *Engine) PickDate(date time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	step := e.script[e.cursor]
	if step.Kind != StepDate {
		return ErrWrongStep
	}
	if date.After(e.now()) {
		e.fail(MsgInvalidInput)
		return ErrInvalidInput
	}
	text := date.Format(DateLayout)
	e.accept(step.Key, text, text)
	return nil
}

// BeginEdit переводит движок в режим выбора поля для редактирования.
// Допустим только на завершающем шаге; ответы не меняются.
func (e *Engine) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor != e.finalIdx {
		return ErrNotInReview
	}
	if e.committing {
		return ErrBusy
	}
	e.editing = true
	e.transcript = append(e.transcript, models.Message{Side: models.SideSystem, Text: MsgWhichField})
	return nil
}

// EditField переводит курсор на шаг с указанным ключом. Остальные ответы
// сохраняются; следующий принятый ответ перезапишет только это поле
// и вернет движок к просмотру.
func (e *Engine) EditField(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	for i, step := range e.script {
		if step.Kind != StepFinal && step.Key == key {
			e.editing = false
			e.editReturn = true
			e.cursor = i
			e.transcript = append(e.transcript, models.Message{Side: models.SideSystem, Text: step.Prompt})
			return nil
		}
	}
	return ErrUnknownField
}

// Commit фиксирует анкету через Committer. Допустим только на завершающем
// шаге. При ошибке история и ответы не меняются, движок остается в режиме
// просмотра и допускает повторную попытку.
func (e *Engine) Commit() error {
	e.mu.Lock()
	if e.cursor != e.finalIdx {
		e.mu.Unlock()
		return ErrNotInReview
	}
	if e.committing {
		e.mu.Unlock()
		return ErrBusy
	}
	e.committing = true
	form := models.FormFromAnswers(e.answers.Snapshot())
	e.mu.Unlock()

	err := e.committer.Commit(form)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.committing = false
	if err != nil {
		return fmt.Errorf("сохранение анкеты: %w", err)
	}
	e.editing = false
	e.committed = true
	e.transcript = append(e.transcript, models.Message{Side: models.SideSystem, Text: MsgSaved})
	return nil
}

// accept записывает принятый ответ, дополняет историю и продвигает курсор.
// Курсор двигается только после записи ответа.
func (e *Engine) accept(key, stored, shown string) {
	e.answers.Set(key, stored)
	e.transcript = append(e.transcript, models.Message{Side: models.SideUser, Text: shown})
	e.errText = ""

	if e.editReturn {
		// Ответ пришел после EditField: возвращаемся сразу к просмотру.
		e.editReturn = false
		e.cursor = e.finalIdx
	} else {
		e.cursor++
	}

	if e.cursor == e.finalIdx {
		e.transcript = append(e.transcript, models.Message{Side: models.SideSystem, Text: MsgAllSet})
	} else {
		e.transcript = append(e.transcript, models.Message{Side: models.SideSystem, Text: e.script[e.cursor].Prompt})
	}
}

// fail фиксирует временную валидационную ошибку.
func (e *Engine) fail(text string) {
	e.errText = text
	e.errAt = e.now()
}

// Transcript возвращает копию истории диалога.
func (e *Engine) Transcript() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]models.Message, len(e.transcript))
	copy(result, e.transcript)
	return result
}

// CurrentStep возвращает шаг, ожидающий ввода.
func (e *Engine) CurrentStep() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.script[e.cursor]
}

// Answers возвращает снимок текущих ответов.
func (e *Engine) Answers() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers.Snapshot()
}

// FieldKeys возвращает ключи полей анкеты в порядке сценария.
func (e *Engine) FieldKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers.Keys()
}

// Editing сообщает, ожидает ли движок выбора поля для редактирования.
func (e *Engine) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// InReview сообщает, достигнут ли завершающий шаг.
func (e *Engine) InReview() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor == e.finalIdx
}

// Committed сообщает, была ли анкета успешно сохранена.
func (e *Engine) Committed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// TransientError возвращает текст валидационной ошибки, пока не истекло
// окно показа; после этого возвращается пустая строка.
func (e *Engine) TransientError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errText == "" || e.now().Sub(e.errAt) > ErrorDisplayWindow {
		return ""
	}
	return e.errText
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
