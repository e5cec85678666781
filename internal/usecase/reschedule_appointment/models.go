package reschedule_appointment

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// Request модель запроса на перенос записи
type Request struct {
	AppointmentID int64            // ID переносимой записи
	Actor         domain.Actor     // Инициатор переноса (из заголовков gateway)
	Date          time.Time        // Новая дата записи (без времени)
	StartTime     types.TimeString // Новое время начала в таймзоне клиники
}

// Response модель ответа с перенесенной записью
type Response struct {
	ID              int64            // ID записи
	PatientID       int64            // ID пациента
	ProfessionalID  int64            // ID специалиста
	ServiceID       int64            // ID услуги
	Date            time.Time        // Новая дата записи
	StartTime       types.TimeString // Новое время начала в таймзоне клиники
	StartsAt        time.Time        // Начало интервала, UTC
	EndsAt          time.Time        // Конец интервала, UTC (исключительно)
	DurationMinutes int              // Длительность в минутах
	Status          string           // Статус записи
	ServiceName     string           // Название услуги
	ServicePrice    float64          // Цена услуги
	Notes           *string          // Заметки
	CreatedAt       time.Time        // Время создания
	UpdatedAt       time.Time        // Время обновления
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
