// Package engine содержит тесты диалогового движка онбординга.
package engine

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"onboarding_bot/internal/models"
)

// fakeCommitter фиксирует переданные снимки и возвращает заданные ошибки.
type fakeCommitter struct {
	forms []models.FormData
	errs  []error // ошибки для последовательных вызовов; nil — успех
	calls int
}

func (f *fakeCommitter) Commit(form models.FormData) error {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.forms = append(f.forms, form)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeCommitter) {
	t.Helper()
	fc := &fakeCommitter{}
	e, err := NewEngine(DefaultScript(), fc)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e, fc
}

// fillAll проходит все шаги сценария ответами из happy path.
func fillAll(t *testing.T, e *Engine) {
	t.Helper()
	steps := []func() error{
		func() error { return e.Submit("Asha") },
		func() error { return e.Choose("B.Tech") },
		func() error { return e.Submit("9876543210") },
		func() error { return e.PickDate(time.Date(1999, time.May, 1, 0, 0, 0, 0, time.UTC)) },
		func() error { return e.Submit("engineer") },
		func() error { return e.Submit("python, go") },
		func() error { return e.PickImage("<b64>", "me.png") },
		func() error { return e.PickDocument("file:///cv.pdf", "cv.pdf") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
}

func TestNewEngineStartsWithFirstPrompt(t *testing.T) {
	e, _ := newTestEngine(t)

	msgs := e.Transcript()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Side != models.SideSystem || msgs[0].Text != "Welcome! Please tell me your name." {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if e.CurrentStep().Key != models.KeyName {
		t.Fatalf("expected cursor at name, got %q", e.CurrentStep().Key)
	}
}

func TestNewEngineRejectsBadScript(t *testing.T) {
	cases := map[string][]Step{
		"empty":          {},
		"no final":       {{Key: "a", Kind: StepText, Prompt: "a?"}},
		"final not last": {{Kind: StepFinal, Prompt: "done"}, {Key: "a", Kind: StepText, Prompt: "a?"}},
		"duplicate keys": {
			{Key: "a", Kind: StepText, Prompt: "a?"},
			{Key: "a", Kind: StepText, Prompt: "a again?"},
			{Kind: StepFinal, Prompt: "done"},
		},
		"menu without options": {
			{Key: "a", Kind: StepMenu, Prompt: "pick"},
			{Kind: StepFinal, Prompt: "done"},
		},
	}

	for name, script := range cases {
		if _, err := NewEngine(script, &fakeCommitter{}); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

// Сценарий 1: happy path от первого вопроса до сохранения.
func TestHappyPathCommit(t *testing.T) {
	e, fc := newTestEngine(t)
	fillAll(t, e)

	if !e.InReview() {
		t.Fatalf("expected review state, cursor at %q", e.CurrentStep().Key)
	}
	if err := e.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if !e.Committed() {
		t.Fatal("expected committed state")
	}

	want := models.FormData{
		Name:          "Asha",
		Qualification: "B.Tech",
		Phone:         "9876543210",
		DOB:           "Sat May 01 1999",
		About:         "engineer",
		Skills:        "python, go",
		ProfilePhoto:  "<b64>",
		Document:      "file:///cv.pdf",
	}
	if len(fc.forms) != 1 {
		t.Fatalf("expected 1 committed form, got %d", len(fc.forms))
	}
	if fc.forms[0] != want {
		t.Fatalf("committed form mismatch:\n got %+v\nwant %+v", fc.forms[0], want)
	}

	msgs := e.Transcript()
	if msgs[len(msgs)-1].Text != MsgSaved {
		t.Fatalf("expected final message %q, got %q", MsgSaved, msgs[len(msgs)-1].Text)
	}
}

// Сценарий 2: неверный телефон отклоняется без изменения состояния.
func TestPhoneValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Submit("Asha"); err != nil {
		t.Fatalf("Submit(name) failed: %v", err)
	}
	if err := e.Choose("B.Tech"); err != nil {
		t.Fatalf("Choose failed: %v", err)
	}

	before := len(e.Transcript())
	if err := e.Submit("12345"); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if e.CurrentStep().Key != models.KeyPhone {
		t.Fatalf("cursor moved to %q", e.CurrentStep().Key)
	}
	if got := e.Answers()[models.KeyPhone]; got != "" {
		t.Fatalf("phone answer written on invalid input: %q", got)
	}
	if msg := e.TransientError(); msg != MsgInvalidInput {
		t.Fatalf("expected transient %q, got %q", MsgInvalidInput, msg)
	}
	if len(e.Transcript()) != before {
		t.Fatal("transcript changed on invalid input")
	}
}

// Сценарий 3: пустой ввод отклоняется.
func TestEmptyInput(t *testing.T) {
	e, _ := newTestEngine(t)

	before := len(e.Transcript())
	if err := e.Submit("   "); err != ErrEmptyField {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if msg := e.TransientError(); msg != MsgEmptyField {
		t.Fatalf("expected transient %q, got %q", MsgEmptyField, msg)
	}
	if len(e.Transcript()) != before {
		t.Fatal("transcript changed on empty input")
	}
	if e.CurrentStep().Key != models.KeyName {
		t.Fatalf("cursor moved to %q", e.CurrentStep().Key)
	}
}

// Сценарий 4: редактирование одного поля возвращает к просмотру
// и меняет только это поле.
func TestEditSingleField(t *testing.T) {
	e, _ := newTestEngine(t)
	fillAll(t, e)
	before := e.Answers()

	if err := e.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	if !e.Editing() {
		t.Fatal("expected editing flag")
	}
	if err := e.EditField(models.KeyPhone); err != nil {
		t.Fatalf("EditField failed: %v", err)
	}
	if e.Editing() {
		t.Fatal("editing flag not cleared")
	}
	if e.CurrentStep().Key != models.KeyPhone {
		t.Fatalf("cursor at %q, want phone", e.CurrentStep().Key)
	}

	if err := e.Submit("0000000000"); err != nil {
		t.Fatalf("Submit after edit failed: %v", err)
	}
	if !e.InReview() {
		t.Fatalf("expected return to review, cursor at %q", e.CurrentStep().Key)
	}

	after := e.Answers()
	for key, value := range before {
		if key == models.KeyPhone {
			continue
		}
		if after[key] != value {
			t.Errorf("key %q changed: %q -> %q", key, value, after[key])
		}
	}
	if after[models.KeyPhone] != "0000000000" {
		t.Fatalf("phone not updated: %q", after[models.KeyPhone])
	}

	msgs := e.Transcript()
	if msgs[len(msgs)-1].Text != MsgAllSet {
		t.Fatalf("expected %q after edit, got %q", MsgAllSet, msgs[len(msgs)-1].Text)
	}
}

// Сценарий 6: неудачное сохранение допускает повтор, снимок не публикуется.
func TestCommitFailureThenRetry(t *testing.T) {
	e, fc := newTestEngine(t)
	fillAll(t, e)
	fc.errs = []error{fmt.Errorf("неверный код ответа: 500"), nil}

	before := e.Answers()
	if err := e.Commit(); err == nil {
		t.Fatal("expected commit error")
	}
	if e.Committed() {
		t.Fatal("engine committed after failure")
	}
	if len(fc.forms) != 0 {
		t.Fatalf("form recorded on failure: %d", len(fc.forms))
	}
	if !reflect.DeepEqual(before, e.Answers()) {
		t.Fatal("answers mutated by failed commit")
	}
	for _, msg := range e.Transcript() {
		if msg.Text == MsgSaved {
			t.Fatal("saved message appended on failure")
		}
	}

	if err := e.Commit(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !e.Committed() {
		t.Fatal("expected committed state after retry")
	}
	if len(fc.forms) != 1 {
		t.Fatalf("expected exactly 1 committed form, got %d", len(fc.forms))
	}
	if fc.calls != 2 {
		t.Fatalf("expected 2 commit calls, got %d", fc.calls)
	}
}

func TestCommitOnlyInReview(t *testing.T) {
	e, fc := newTestEngine(t)
	if err := e.Commit(); err != ErrNotInReview {
		t.Fatalf("expected ErrNotInReview, got %v", err)
	}
	if fc.calls != 0 {
		t.Fatalf("committer called outside review: %d", fc.calls)
	}
}

func TestWrongKindOperations(t *testing.T) {
	e, _ := newTestEngine(t)

	// Текущий шаг — текстовый (name).
	if err := e.Choose("B.Tech"); err != ErrWrongStep {
		t.Errorf("Choose on text step: expected ErrWrongStep, got %v", err)
	}
	if err := e.PickImage("x", "a.png"); err != ErrWrongStep {
		t.Errorf("PickImage on text step: expected ErrWrongStep, got %v", err)
	}
	if err := e.PickDocument("file:///a.pdf", "a.pdf"); err != ErrWrongStep {
		t.Errorf("PickDocument on text step: expected ErrWrongStep, got %v", err)
	}
	if err := e.PickDate(time.Now()); err != ErrWrongStep {
		t.Errorf("PickDate on text step: expected ErrWrongStep, got %v", err)
	}
	if err := e.BeginEdit(); err != ErrNotInReview {
		t.Errorf("BeginEdit before review: expected ErrNotInReview, got %v", err)
	}
	if err := e.EditField(models.KeyPhone); err != ErrNotEditing {
		t.Errorf("EditField without BeginEdit: expected ErrNotEditing, got %v", err)
	}
}

func TestMenuRejectsUnknownOption(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Submit("Asha"); err != nil {
		t.Fatalf("Submit(name) failed: %v", err)
	}

	if err := e.Choose("PhD"); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := e.Answers()[models.KeyQualification]; got != "" {
		t.Fatalf("qualification written on invalid option: %q", got)
	}

	// Типизированный ответ на шаге-меню тоже обязан совпадать с вариантом.
	if err := e.Submit("M.Sc"); err != nil {
		t.Fatalf("Submit with valid option failed: %v", err)
	}
	if got := e.Answers()[models.KeyQualification]; got != "M.Sc" {
		t.Fatalf("qualification = %q, want M.Sc", got)
	}
}

func TestFutureDateRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Submit("Asha"); err != nil {
		t.Fatalf("Submit(name) failed: %v", err)
	}
	if err := e.Choose("B.Tech"); err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if err := e.Submit("9876543210"); err != nil {
		t.Fatalf("Submit(phone) failed: %v", err)
	}

	if err := e.PickDate(time.Now().Add(48 * time.Hour)); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for future date, got %v", err)
	}
	if got := e.Answers()[models.KeyDOB]; got != "" {
		t.Fatalf("dob written on future date: %q", got)
	}
	if e.CurrentStep().Key != models.KeyDOB {
		t.Fatalf("cursor moved to %q", e.CurrentStep().Key)
	}
}

// Сценарий 5: отмена выбора файла. Отмененный выбор не доходит до движка,
// а пустой результат отклоняется без изменения состояния.
func TestPickerCancelLeavesStateUnchanged(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Submit("Asha"); err != nil {
		t.Fatalf("Submit(name) failed: %v", err)
	}
	if err := e.Choose("B.Tech"); err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if err := e.Submit("9876543210"); err != nil {
		t.Fatalf("Submit(phone) failed: %v", err)
	}
	if err := e.PickDate(time.Date(1999, time.May, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("PickDate failed: %v", err)
	}
	if err := e.Submit("engineer"); err != nil {
		t.Fatalf("Submit(about) failed: %v", err)
	}
	if err := e.Submit("python, go"); err != nil {
		t.Fatalf("Submit(skills) failed: %v", err)
	}
	if e.CurrentStep().Key != models.KeyProfilePhoto {
		t.Fatalf("cursor at %q, want profilePhoto", e.CurrentStep().Key)
	}

	transcript := len(e.Transcript())
	answers := e.Answers()

	// Пустой результат выбора эквивалентен отмене.
	if err := e.PickImage("", ""); err != ErrEmptyField {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if len(e.Transcript()) != transcript {
		t.Fatal("transcript changed on cancelled pick")
	}
	if e.CurrentStep().Key != models.KeyProfilePhoto {
		t.Fatalf("cursor moved to %q", e.CurrentStep().Key)
	}
	if !reflect.DeepEqual(answers, e.Answers()) {
		t.Fatal("answers changed on cancelled pick")
	}
}

// Инвариант: история диалога только растет, сообщения не переупорядочиваются.
func TestTranscriptMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)

	prev := e.Transcript()
	check := func() {
		t.Helper()
		cur := e.Transcript()
		if len(cur) < len(prev) {
			t.Fatalf("transcript shrank: %d -> %d", len(prev), len(cur))
		}
		for i := range prev {
			if cur[i] != prev[i] {
				t.Fatalf("message %d reordered: %+v -> %+v", i, prev[i], cur[i])
			}
		}
		prev = cur
	}

	ops := []func() error{
		func() error { return e.Submit("") },     // отклоняется
		func() error { return e.Submit("Asha") }, // принимается
		func() error { return e.Choose("nope") }, // отклоняется
		func() error { return e.Choose("B.E") },  // принимается
		func() error { return e.Submit("123") },  // отклоняется
		func() error { return e.Submit("1234567890") },
		func() error { return e.PickDate(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)) },
	}
	for _, op := range ops {
		_ = op()
		check()
	}
}

// Инвариант: набор ключей ответов всегда равен нефинальным ключам сценария.
func TestKeySetStability(t *testing.T) {
	e, _ := newTestEngine(t)
	want := []string{
		models.KeyName, models.KeyQualification, models.KeyPhone, models.KeyDOB,
		models.KeyAbout, models.KeySkills, models.KeyProfilePhoto, models.KeyDocument,
	}

	checkKeys := func() {
		t.Helper()
		answers := e.Answers()
		if len(answers) != len(want) {
			t.Fatalf("answer key count = %d, want %d", len(answers), len(want))
		}
		for _, key := range want {
			if _, ok := answers[key]; !ok {
				t.Fatalf("missing key %q", key)
			}
		}
	}

	checkKeys()
	_ = e.Submit("Asha")
	checkKeys()
	_ = e.Choose("B.Sc")
	checkKeys()
	_ = e.Submit("oops")
	checkKeys()
}

func TestTransientErrorExpires(t *testing.T) {
	e, _ := newTestEngine(t)
	base := time.Now()
	e.now = func() time.Time { return base }

	if err := e.Submit(""); err != ErrEmptyField {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if msg := e.TransientError(); msg != MsgEmptyField {
		t.Fatalf("expected %q, got %q", MsgEmptyField, msg)
	}

	// По истечении окна показа ошибка гаснет сама.
	e.now = func() time.Time { return base.Add(ErrorDisplayWindow + time.Second) }
	if msg := e.TransientError(); msg != "" {
		t.Fatalf("expected expired transient error, got %q", msg)
	}
}

func TestTransientErrorClearedOnAdvance(t *testing.T) {
	e, _ := newTestEngine(t)

	if err := e.Submit(""); err != ErrEmptyField {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if err := e.Submit("Asha"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if msg := e.TransientError(); msg != "" {
		t.Fatalf("transient error survived successful advance: %q", msg)
	}
}

func TestBeginEditAppendsQuestion(t *testing.T) {
	e, _ := newTestEngine(t)
	fillAll(t, e)
	answersBefore := e.Answers()

	if err := e.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	msgs := e.Transcript()
	if msgs[len(msgs)-1].Text != MsgWhichField {
		t.Fatalf("expected %q, got %q", MsgWhichField, msgs[len(msgs)-1].Text)
	}
	if !reflect.DeepEqual(answersBefore, e.Answers()) {
		t.Fatal("BeginEdit mutated answers")
	}

	if err := e.EditField("unknown"); err != ErrUnknownField {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestUserMessageShowsFilename(t *testing.T) {
	e, _ := newTestEngine(t)
	fillAll(t, e)

	var texts []string
	for _, msg := range e.Transcript() {
		if msg.Side == models.SideUser {
			texts = append(texts, msg.Text)
		}
	}
	want := []string{"Asha", "B.Tech", "9876543210", "Sat May 01 1999", "engineer", "python, go", "me.png", "cv.pdf"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("user messages mismatch:\n got %v\nwant %v", texts, want)
	}
}
