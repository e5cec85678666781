package domain

import "time"

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending                 AppointmentStatus = "pending"
	StatusConfirmed               AppointmentStatus = "confirmed"
	StatusCompleted               AppointmentStatus = "completed"
	StatusNoShow                  AppointmentStatus = "no_show"
	StatusCancelledByPatient      AppointmentStatus = "cancelled_by_patient"
	StatusCancelledByProfessional AppointmentStatus = "cancelled_by_professional"
)

// allowedTransitions описывает допустимые переходы статусов
// Терминальные статусы (completed, no_show, cancelled_*) переходов не имеют
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending: {
		StatusConfirmed,
		StatusCancelledByPatient,
		StatusCancelledByProfessional,
	},
	StatusConfirmed: {
		StatusCompleted,
		StatusNoShow,
		StatusCancelledByPatient,
		StatusCancelledByProfessional,
	},
}

// IsValid returns true if the status is one of the known statuses
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusNoShow,
		StatusCancelledByPatient, StatusCancelledByProfessional:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s AppointmentStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Appointment represents a patient's booking with a professional
type Appointment struct {
	ID             int64
	PatientID      int64
	ProfessionalID int64
	ServiceID      int64

	// Half-open interval [StartsAt, EndsAt), stored in UTC
	StartsAt time.Time
	EndsAt   time.Time

	Status AppointmentStatus

	// Denormalized service data for history
	ServiceName     string
	ServicePrice    float64
	DurationMinutes int

	Notes *string

	CancellationReason *string
	CancelledAt        *time.Time

	// IdempotencyKey защищает от повторной отправки одного и того же запроса на запись
	IdempotencyKey *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the appointment still occupies its time interval
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelledByPatient &&
		a.Status != StatusCancelledByProfessional &&
		a.Status != StatusNoShow
}

// IsCancelled returns true if the appointment has been cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelledByPatient || a.Status == StatusCancelledByProfessional
}

// CanBeCancelled returns true if the appointment can still be cancelled
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// CanBeRescheduled returns true if the appointment can be moved to another slot
func (a *Appointment) CanBeRescheduled() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// CanTransitionTo returns true if moving to next is allowed by the status machine
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[a.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Interval returns the appointment's half-open time interval
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartsAt, End: a.EndsAt}
}

// ProfessionalAppointmentsFilter фильтр выборки записей специалиста
type ProfessionalAppointmentsFilter struct {
	ProfessionalID  int64              // Обязательный параметр
	From            *time.Time         // Начало периода (опционально)
	To              *time.Time         // Конец периода (опционально, исключительно)
	Status          *AppointmentStatus // Фильтр по статусу (опционально)
	IncludeInactive bool               // Включать ли отменённые и no-show записи
}
