package models

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/pkg/ptr"
	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// Request модели

// WindowInput входные данные одного окна расписания
type WindowInput struct {
	Weekday   int    `json:"weekday"`   // 0 (воскресенье) .. 6 (суббота)
	StartTime string `json:"startTime"` // "09:00"
	EndTime   string `json:"endTime"`   // "13:00"
	Active    *bool  `json:"active,omitempty"`
}

// ReplaceScheduleRequest запрос на полную замену расписания специалиста
type ReplaceScheduleRequest struct {
	Actor          domain.Actor  `json:"-"`
	ProfessionalID int64         `json:"professionalId"`
	Windows        []WindowInput `json:"windows"`
}

// ToDomainWindows конвертирует входные окна в domain модели
func (r *ReplaceScheduleRequest) ToDomainWindows() []domain.AvailabilityWindow {
	windows := make([]domain.AvailabilityWindow, len(r.Windows))
	for i, w := range r.Windows {
		windows[i] = domain.AvailabilityWindow{
			ProfessionalID: r.ProfessionalID,
			Weekday:        time.Weekday(w.Weekday),
			StartTime:      types.TimeString(w.StartTime),
			EndTime:        types.TimeString(w.EndTime),
			// Не переданный флаг означает активное окно
			Active: ptr.Deref(w.Active, true),
		}
	}
	return windows
}

// Response модели

// WindowResponse ответ с данными окна расписания
type WindowResponse struct {
	ID             int64  `json:"id"`
	ProfessionalID int64  `json:"professionalId"`
	Weekday        int    `json:"weekday"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Active         bool   `json:"active"`
}

// ScheduleResponse ответ с расписанием специалиста
type ScheduleResponse struct {
	ProfessionalID int64            `json:"professionalId"`
	Windows        []WindowResponse `json:"windows"`
}

// Методы конвертации

// FromDomainWindows конвертирует domain модели в DTO
func FromDomainWindows(professionalID int64, windows []domain.AvailabilityWindow) *ScheduleResponse {
	resp := &ScheduleResponse{
		ProfessionalID: professionalID,
		Windows:        make([]WindowResponse, len(windows)),
	}

	for i, w := range windows {
		resp.Windows[i] = WindowResponse{
			ID:             w.ID,
			ProfessionalID: w.ProfessionalID,
			Weekday:        int(w.Weekday),
			StartTime:      w.StartTime.String(),
			EndTime:        w.EndTime.String(),
			Active:         w.Active,
		}
	}

	return resp
}
