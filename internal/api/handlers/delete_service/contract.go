package delete_service

import (
	"context"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

type CatalogService interface {
	Deactivate(ctx context.Context, id int64, actor domain.Actor) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
