package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
)

// AppointmentRepository интерфейс репозитория записей на прием
type AppointmentRepository interface {
	// GetByProfessionalWithFilter получает записи специалиста за интервал времени
	GetByProfessionalWithFilter(ctx context.Context, filter domain.ProfessionalAppointmentsFilter) ([]*domain.Appointment, error)
}

// ScheduleRepository интерфейс репозитория расписания специалистов
type ScheduleRepository interface {
	// ListByProfessional получает окна доступности специалиста
	ListByProfessional(ctx context.Context, professionalID int64, onlyActive bool) ([]domain.AvailabilityWindow, error)
}

// ServiceRepository интерфейс репозитория каталога услуг
type ServiceRepository interface {
	GetByID(ctx context.Context, serviceID int64) (*domain.Service, error)
}

// ProfileServiceClient интерфейс клиента для ProfileService
type ProfileServiceClient interface {
	GetUser(ctx context.Context, userID int64) (*profileservice.User, error)
}

// SlotCache интерфейс кеша рассчитанных слотов
type SlotCache interface {
	Get(ctx context.Context, professionalID, serviceID int64, date string) ([]domain.Slot, bool)
	Set(ctx context.Context, professionalID, serviceID int64, date string, slots []domain.Slot)
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
