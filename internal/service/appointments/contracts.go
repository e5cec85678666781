package appointments

import (
	"context"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/notifyservice"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
)

// AppointmentRepository интерфейс репозитория записей на прием
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByPatient(ctx context.Context, patientID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error)
	GetByProfessionalWithFilter(ctx context.Context, filter domain.ProfessionalAppointmentsFilter) ([]*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error
	Cancel(ctx context.Context, id int64, status domain.AppointmentStatus, reason string) error
}

// ProfileServiceClient интерфейс клиента для ProfileService
// Используется только для обогащения уведомлений, ошибки не критичны
type ProfileServiceClient interface {
	GetUserWithGracefulDegradation(ctx context.Context, userID int64) (*profileservice.User, error)
}

// NotifyServiceClient интерфейс клиента для NotifyService
type NotifyServiceClient interface {
	NotifyAppointmentEvent(ctx context.Context, event notifyservice.AppointmentEvent)
}

// SlotCache интерфейс кеша рассчитанных слотов
type SlotCache interface {
	InvalidateDay(ctx context.Context, professionalID int64, date string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
