// Package api реализует клиент бэкенда: сохранение анкеты, вход,
// получение профиля и загрузку фотографии профиля.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"onboarding_bot/internal/metrics"
	"onboarding_bot/internal/models"
)

var (
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrNotFound     = fmt.Errorf("not found")
)

// Client представляет клиент для работы с HTTP API бэкенда.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	retryCount int
	retryWait  time.Duration
}

// NewClient создает новый клиент API.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics:    m,
		retryCount: 1,
		retryWait:  500 * time.Millisecond,
	}
}

// SetRetryPolicy задает политику повторов для идемпотентных запросов.
func (c *Client) SetRetryPolicy(count int, wait time.Duration) {
	if count > 0 {
		c.retryCount = count
	}
	if wait > 0 {
		c.retryWait = wait
	}
}

// SaveUserData отправляет анкету на бэкенд. Успехом считается любой
// код ответа 2xx. Запрос не повторяется автоматически: сервер
// не дедуплицирует сохранения.
func (c *Client) SaveUserData(form models.FormData) error {
	start := time.Now()
	c.metrics.IncAPIRequests()
	defer func() {
		c.metrics.UpdateLatency(time.Since(start))
	}()

	data, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("ошибка сериализации анкеты: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/auth/save-user-data", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncAPIErrors()
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncAPIErrors()
		return fmt.Errorf("неверный код ответа: %d", resp.StatusCode)
	}

	return nil
}

// Login выполняет вход и возвращает сессионный токен.
func (c *Client) Login(email, password string) (string, error) {
	c.metrics.IncAPIRequests()

	body := map[string]string{"email": email, "password": password}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/auth/login", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncAPIErrors()
		return "", fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.metrics.IncAPIErrors()
		return "", ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		c.metrics.IncAPIErrors()
		return "", fmt.Errorf("неверный код ответа: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("бэкенд не вернул токен")
	}

	return result.Token, nil
}

// GetProfile возвращает профиль пользователя по сессионному токену.
// Запрос идемпотентен, поэтому выполняется с ограниченным повтором
// при 5xx и транспортных ошибках.
func (c *Client) GetProfile(token string) (models.Profile, error) {
	var profile models.Profile

	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(c.retryWait)
		}

		c.metrics.IncAPIRequests()
		req, err := http.NewRequest("GET", c.baseURL+"/auth/profile", nil)
		if err != nil {
			return profile, fmt.Errorf("ошибка создания запроса: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.IncAPIErrors()
			lastErr = fmt.Errorf("ошибка выполнения запроса: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(&profile)
			resp.Body.Close()
			if err != nil {
				return profile, fmt.Errorf("ошибка декодирования ответа: %w", err)
			}
			return profile, nil
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			c.metrics.IncAPIErrors()
			return profile, ErrUnauthorized
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			c.metrics.IncAPIErrors()
			return profile, ErrNotFound
		case resp.StatusCode >= 500:
			resp.Body.Close()
			c.metrics.IncAPIErrors()
			lastErr = fmt.Errorf("неверный код ответа: %d", resp.StatusCode)
			continue
		default:
			resp.Body.Close()
			c.metrics.IncAPIErrors()
			return profile, fmt.Errorf("неверный код ответа: %d", resp.StatusCode)
		}
	}

	return profile, lastErr
}

// UploadPhoto загружает новую фотографию профиля multipart-запросом.
func (c *Client) UploadPhoto(token, filename string, data []byte) error {
	c.metrics.IncAPIRequests()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("profilePhoto", filename)
	if err != nil {
		return fmt.Errorf("ошибка создания части file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("ошибка записи файла: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия writer: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/auth/upload-photo", body)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncAPIErrors()
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.IncAPIErrors()
		return fmt.Errorf("неверный код ответа: %d", resp.StatusCode)
	}

	return nil
}
