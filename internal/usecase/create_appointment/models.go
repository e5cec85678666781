package create_appointment

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// Request модель запроса на создание записи
type Request struct {
	PatientID      int64            // ID пациента (из заголовков gateway)
	ProfessionalID int64            // ID специалиста
	ServiceID      int64            // ID услуги
	Date           time.Time        // Дата записи (без времени)
	StartTime      types.TimeString // Время начала слота в таймзоне клиники (например, "10:00")
	Notes          *string          // Дополнительные заметки (опционально)
	IdempotencyKey *string          // UUID для защиты от двойной отправки (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID              int64            // ID созданной записи
	PatientID       int64            // ID пациента
	ProfessionalID  int64            // ID специалиста
	ServiceID       int64            // ID услуги
	Date            time.Time        // Дата записи
	StartTime       types.TimeString // Время начала в таймзоне клиники
	StartsAt        time.Time        // Начало интервала, UTC
	EndsAt          time.Time        // Конец интервала, UTC (исключительно)
	DurationMinutes int              // Длительность в минутах
	Status          string           // Статус записи

	// Денормализованные данные услуги
	ServiceName  string  // Название услуги
	ServicePrice float64 // Цена услуги
	Notes        *string // Заметки

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}

func toResponse(a *domain.Appointment, loc *time.Location) *Response {
	startLocal := a.StartsAt.In(loc)
	return &Response{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ProfessionalID:  a.ProfessionalID,
		ServiceID:       a.ServiceID,
		Date:            time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc),
		StartTime:       types.NewTimeString(startLocal),
		StartsAt:        a.StartsAt,
		EndsAt:          a.EndsAt,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		ServiceName:     a.ServiceName,
		ServicePrice:    a.ServicePrice,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
