package create_appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.PatientID <= 0 {
		return fmt.Errorf("%w: patientID must be positive", ErrInvalidInput)
	}

	if req.ProfessionalID <= 0 {
		return fmt.Errorf("%w: professionalID must be positive", ErrInvalidInput)
	}

	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	// Проверяем, что дата не является нулевой
	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	// Проверяем, что время начала указано
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	// Валидируем формат времени
	if err := req.StartTime.Validate(); err != nil {
		return fmt.Errorf("%w: invalid startTime format: %v", ErrInvalidInput, err)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must not exceed %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	// Ключ идемпотентности должен быть валидным UUID
	if req.IdempotencyKey != nil {
		if _, err := uuid.Parse(*req.IdempotencyKey); err != nil {
			return fmt.Errorf("%w: idempotencyKey must be a valid UUID", ErrInvalidInput)
		}
	}

	return nil
}

// validateDate проверяет, что дата подходит для записи
func validateDate(appointmentDate time.Time, now time.Time, advanceBookingDays int, loc *time.Location) error {
	// Проверяем, что дата не в прошлом (в часовом поясе клиники)
	if isDateInPast(appointmentDate, now, loc) {
		return ErrInvalidDate
	}

	// Если advanceBookingDays = 0, нет ограничений на дату
	if advanceBookingDays == 0 {
		return nil
	}

	nowLocal := now.In(loc)
	maxDate := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, advanceBookingDays)

	dateOnly := domain.LocalDay(appointmentDate, loc)

	if dateOnly.After(maxDate) {
		return fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, advanceBookingDays)
	}

	return nil
}

// fitsSchedule проверяет, что интервал целиком помещается в одно из активных окон
// расписания на нужный день недели
func fitsSchedule(windows []domain.AvailabilityWindow, candidate domain.Interval, date time.Time, loc *time.Location) bool {
	day := domain.LocalDay(date, loc)
	weekday := day.Weekday()

	for _, window := range windows {
		if !window.IsUsable() || window.Weekday != weekday {
			continue
		}

		windowStart, err := window.StartTime.OnDate(day, loc)
		if err != nil {
			continue
		}
		windowEnd, err := window.EndTime.OnDate(day, loc)
		if err != nil {
			continue
		}

		if !candidate.Start.Before(windowStart) && !candidate.End.After(windowEnd) {
			return true
		}
	}

	return false
}

// isDateInPast проверяет, что дата раньше сегодняшнего дня в часовом поясе клиники
func isDateInPast(date, now time.Time, loc *time.Location) bool {
	nowLocal := now.In(loc)
	today := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc)
	return domain.LocalDay(date, loc).Before(today)
}
