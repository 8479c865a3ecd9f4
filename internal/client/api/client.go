package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iudanet/notesync/internal/models"
	"github.com/iudanet/notesync/internal/server/storage"
	"github.com/iudanet/notesync/pkg/api"
)

var (
	// ErrUnauthorized indicates that the server rejected the access token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates that the server throttled the request
	ErrRateLimited = errors.New("rate limited")
)

// Client представляет HTTP клиент авторитетного хранилища
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

var _ storage.Store = (*Client)(nil)

// NewClient создает новый API клиент
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Apply отправляет операцию outbox на сервер.
// userID определяется сервером по токену; параметр сохраняет контракт storage.Store.
func (c *Client) Apply(ctx context.Context, userID string, op models.OutboxOperation) (*models.SyncRecord, error) {
	var resp api.Record
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/operations", toRequest(op), &resp); err != nil {
		return nil, fmt.Errorf("apply %s %s: %w", op.Kind, op.RecordID, err)
	}

	record := fromWire(resp)
	return &record, nil
}

// Pull получает изменения после sinceToken
func (c *Client) Pull(ctx context.Context, userID string, sinceToken int64) (*storage.PullResult, error) {
	var resp api.PullResponse
	path := "/api/v1/sync/changes?since=" + strconv.FormatInt(sinceToken, 10)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}

	result := &storage.PullResult{
		Changes:  make([]models.ServerChange, 0, len(resp.Changes)),
		NewToken: resp.NewToken,
	}
	for _, change := range resp.Changes {
		result.Changes = append(result.Changes, models.ServerChange{
			Token:  change.Token,
			Record: fromWire(change.Record),
		})
	}

	return result, nil
}

// Record получает актуальную серверную запись
func (c *Client) Record(ctx context.Context, userID, id string) (*models.SyncRecord, error) {
	var resp api.Record
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/records/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	record := fromWire(resp)
	return &record, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// responseError сопоставляет HTTP статус с ошибками контракта хранилища
func responseError(status int, body []byte) error {
	message := string(body)
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Message
	}

	var kind error
	switch status {
	case http.StatusConflict:
		kind = models.ErrOccConflict
	case http.StatusNotFound:
		kind = storage.ErrRecordNotFound
	case http.StatusBadRequest:
		kind = storage.ErrInvalidOperation
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	default:
		return fmt.Errorf("request failed with status %d: %s", status, message)
	}

	return fmt.Errorf("server error (%d): %s: %w", status, message, kind)
}
