package notifyservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для отправки событий в NotifyService
//
// Уведомления не критичны для основного сценария: все публичные методы
// работают в режиме fire-and-forget - сбой доставки логируется и никогда
// не возвращается вызывающему коду
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента NotifyService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// NotifyAppointmentEvent отправляет событие о записи
// Ошибки доставки поглощаются: запись уже создана/отменена, уведомление вторично
func (c *Client) NotifyAppointmentEvent(ctx context.Context, event AppointmentEvent) {
	if err := c.post(ctx, "/internal/notifications/appointments", event); err != nil {
		c.log.Error("NotifyService: failed to deliver %s for appointment_id=%d: %v",
			event.Type, event.AppointmentID, err)
		return
	}
	c.log.Info("NotifyService: delivered %s for appointment_id=%d", event.Type, event.AppointmentID)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal payload: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(respBody))
	}

	return nil
}
