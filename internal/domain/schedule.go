package domain

import (
	"fmt"
	"time"

	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// AvailabilityWindow represents a recurring weekly time range
// during which a professional accepts appointments
type AvailabilityWindow struct {
	ID             int64
	ProfessionalID int64
	Weekday        time.Weekday
	StartTime      types.TimeString
	EndTime        types.TimeString
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsUsable returns true if the window can produce slots
// Деградировавшее окно (start >= end) слотов не даёт, но ошибкой не является
func (w *AvailabilityWindow) IsUsable() bool {
	return w.Active && w.StartTime.IsBefore(w.EndTime)
}

// Validate проверяет корректность окна при записи
func (w *AvailabilityWindow) Validate() error {
	if w.ProfessionalID <= 0 {
		return fmt.Errorf("%w: professionalID must be positive", ErrInvalidWindow)
	}
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday must be in 0..6", ErrInvalidWindow)
	}
	if err := w.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: startTime: %v", ErrInvalidWindow, err)
	}
	if err := w.EndTime.Validate(); err != nil {
		return fmt.Errorf("%w: endTime: %v", ErrInvalidWindow, err)
	}
	if !w.StartTime.IsBefore(w.EndTime) {
		return fmt.Errorf("%w: startTime must be before endTime", ErrInvalidWindow)
	}
	return nil
}
