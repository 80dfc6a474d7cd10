// Package models содержит структуры данных, используемые в проекте:
// анкета пользователя, сообщения диалога и профиль.
package models

// Side определяет сторону сообщения в диалоге (система или пользователь).
type Side string

const (
	// SideSystem — сообщение отправлено ботом (вопрос или статус).
	SideSystem Side = "system"
	// SideUser — сообщение отправлено пользователем (ответ на шаг).
	SideUser Side = "user"
)

// Message представляет одно сообщение в истории диалога.
// История строго append-only: сообщения не редактируются и не удаляются.
type Message struct {
	Side Side   `json:"side"`
	Text string `json:"text"`
}

// Ключи полей анкеты. Состав соответствует сценарию диалога;
// те же имена используются как JSON-ключи при отправке на бэкенд.
const (
	KeyName          = "name"
	KeyQualification = "qualification"
	KeyPhone         = "phone"
	KeyDOB           = "dob"
	KeyAbout         = "about"
	KeySkills        = "skills"
	KeyProfilePhoto  = "profilePhoto"
	KeyDocument      = "document"
)

// FormData представляет собранную анкету пользователя — ровно те восемь
// полей, которые принимает эндпоинт /auth/save-user-data.
// Для фотографии хранится base64-представление содержимого,
// для документа — ссылка на файл.
type FormData struct {
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
	Phone         string `json:"phone"`
	DOB           string `json:"dob"`
	About         string `json:"about"`
	Skills        string `json:"skills"`
	ProfilePhoto  string `json:"profilePhoto"`
	Document      string `json:"document"`
}

// FormFromAnswers собирает FormData из карты ответов по ключам шагов.
// Отсутствующие ключи дают пустые строки.
func FormFromAnswers(answers map[string]string) FormData {
	return FormData{
		Name:          answers[KeyName],
		Qualification: answers[KeyQualification],
		Phone:         answers[KeyPhone],
		DOB:           answers[KeyDOB],
		About:         answers[KeyAbout],
		Skills:        answers[KeySkills],
		ProfilePhoto:  answers[KeyProfilePhoto],
		Document:      answers[KeyDocument],
	}
}

// Profile представляет данные профиля, возвращаемые бэкендом по токену.
type Profile struct {
	Salutation string `json:"salutation,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address,omitempty"`
}
