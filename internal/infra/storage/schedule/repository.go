package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	"github.com/m04kA/Clinic-BookingService/pkg/dbmetrics"
	"github.com/m04kA/Clinic-BookingService/pkg/psqlbuilder"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

var windowColumns = []string{
	"id",
	"professional_id",
	"weekday",
	"start_time",
	"end_time",
	"active",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с окнами расписания специалистов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписаний
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// ListByProfessional получает окна расписания специалиста
// onlyActive = true отбирает только активные окна (нужно для генерации слотов)
func (r *Repository) ListByProfessional(ctx context.Context, professionalID int64, onlyActive bool) ([]domain.AvailabilityWindow, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(windowColumns...).
		From("availability_windows").
		Where(squirrel.Eq{"professional_id": professionalID}).
		OrderBy("weekday ASC, start_time ASC")

	if onlyActive {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"active": true})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByProfessional - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByProfessional - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

// ReplaceForProfessional атомарно заменяет недельное расписание специалиста
// Вызывается внутри транзакции (txmanager кладёт её в контекст)
func (r *Repository) ReplaceForProfessional(ctx context.Context, professionalID int64, windows []domain.AvailabilityWindow) ([]domain.AvailabilityWindow, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	deleteQuery, deleteArgs, err := psqlbuilder.Delete("availability_windows").
		Where(squirrel.Eq{"professional_id": professionalID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ReplaceForProfessional - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return nil, fmt.Errorf("%w: ReplaceForProfessional - execute delete: %w", ErrExecQuery, err)
	}

	if len(windows) == 0 {
		return []domain.AvailabilityWindow{}, nil
	}

	insertBuilder := psqlbuilder.Insert("availability_windows").
		Columns("professional_id", "weekday", "start_time", "end_time", "active")

	for _, w := range windows {
		insertBuilder = insertBuilder.Values(professionalID, int(w.Weekday), w.StartTime, w.EndTime, w.Active)
	}

	insertQuery, insertArgs, err := insertBuilder.
		Suffix("RETURNING id, professional_id, weekday, start_time, end_time, active, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ReplaceForProfessional - build insert query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, insertQuery, insertArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: ReplaceForProfessional - execute insert: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

// scanWindows сканирует результаты запроса в слайс окон расписания
func scanWindows(rows *sql.Rows) ([]domain.AvailabilityWindow, error) {
	windows := make([]domain.AvailabilityWindow, 0)

	for rows.Next() {
		var window domain.AvailabilityWindow
		var weekday int
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&window.ID,
			&window.ProfessionalID,
			&weekday,
			&window.StartTime,
			&window.EndTime,
			&window.Active,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanWindows - scan row: %w", ErrScanRow, err)
		}

		window.Weekday = time.Weekday(weekday)
		window.CreatedAt = createdAt.Time
		window.UpdatedAt = updatedAt.Time

		windows = append(windows, window)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanWindows - rows error: %w", ErrScanRow, err)
	}

	return windows, nil
}
