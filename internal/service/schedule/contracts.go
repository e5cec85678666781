package schedule

import (
	"context"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
)

// ScheduleRepository интерфейс репозитория расписания специалистов
type ScheduleRepository interface {
	ListByProfessional(ctx context.Context, professionalID int64, onlyActive bool) ([]domain.AvailabilityWindow, error)
	ReplaceForProfessional(ctx context.Context, professionalID int64, windows []domain.AvailabilityWindow) ([]domain.AvailabilityWindow, error)
}

// ProfileServiceClient интерфейс клиента для ProfileService
type ProfileServiceClient interface {
	GetUser(ctx context.Context, userID int64) (*profileservice.User, error)
}

// SlotCache интерфейс кеша рассчитанных слотов
type SlotCache interface {
	InvalidateProfessional(ctx context.Context, professionalID int64)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
