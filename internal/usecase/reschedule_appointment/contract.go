package reschedule_appointment

import (
	"context"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей на прием
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByProfessionalWithFilter(ctx context.Context, filter domain.ProfessionalAppointmentsFilter) ([]*domain.Appointment, error)
	Reschedule(ctx context.Context, id int64, startsAt, endsAt time.Time) error
}

// ScheduleRepository интерфейс репозитория расписания специалистов
type ScheduleRepository interface {
	ListByProfessional(ctx context.Context, professionalID int64, onlyActive bool) ([]domain.AvailabilityWindow, error)
}

// SlotCache интерфейс кеша рассчитанных слотов
type SlotCache interface {
	InvalidateDay(ctx context.Context, professionalID int64, date string)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
