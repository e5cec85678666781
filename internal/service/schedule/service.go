package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	profileClient "github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
	"github.com/m04kA/Clinic-BookingService/internal/service/schedule/models"
)

// Service сервис для работы с расписанием специалистов
type Service struct {
	scheduleRepo  ScheduleRepository
	profileClient ProfileServiceClient
	slotCache     SlotCache
	txManager     TransactionManager
	logger        Logger
}

// NewService создает новый экземпляр сервиса расписания
func NewService(
	scheduleRepo ScheduleRepository,
	profileClient ProfileServiceClient,
	slotCache SlotCache,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		scheduleRepo:  scheduleRepo,
		profileClient: profileClient,
		slotCache:     slotCache,
		txManager:     txManager,
		logger:        logger,
	}
}

// GetSchedule получает расписание специалиста
// Публичный метод - расписание видно всем, как и доступные слоты
func (s *Service) GetSchedule(ctx context.Context, professionalID int64) (*models.ScheduleResponse, error) {
	s.logger.Info("GetSchedule: fetching schedule for professional=%d", professionalID)

	if professionalID <= 0 {
		return nil, fmt.Errorf("%w: professionalID must be positive", ErrInvalidInput)
	}

	windows, err := s.scheduleRepo.ListByProfessional(ctx, professionalID, false)
	if err != nil {
		s.logger.Error("GetSchedule: repository error for professional=%d: %v", professionalID, err)
		return nil, fmt.Errorf("%w: GetSchedule - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetSchedule: successfully fetched %d windows for professional=%d",
		len(windows), professionalID)
	return models.FromDomainWindows(professionalID, windows), nil
}

// ReplaceSchedule полностью заменяет недельное расписание специалиста
// Доступно самому специалисту и администратору
func (s *Service) ReplaceSchedule(ctx context.Context, req *models.ReplaceScheduleRequest) (*models.ScheduleResponse, error) {
	s.logger.Info("ReplaceSchedule: replacing schedule for professional=%d by user=%d, windows=%d",
		req.ProfessionalID, req.Actor.UserID, len(req.Windows))

	if req.ProfessionalID <= 0 {
		return nil, fmt.Errorf("%w: professionalID must be positive", ErrInvalidInput)
	}

	// Проверяем права доступа
	if req.Actor.UserID != req.ProfessionalID && !req.Actor.IsAdmin() {
		s.logger.Warn("ReplaceSchedule: access denied for user=%d to professional=%d",
			req.Actor.UserID, req.ProfessionalID)
		return nil, ErrAccessDenied
	}

	// Проверяем, что пользователь существует и является специалистом
	professional, err := s.profileClient.GetUser(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, profileClient.ErrUserNotFound) {
			s.logger.Warn("ReplaceSchedule: professional id=%d not found", req.ProfessionalID)
			return nil, ErrProfessionalNotFound
		}
		s.logger.Error("ReplaceSchedule: failed to get professional id=%d: %v", req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: failed to get professional: %v", ErrInternal, err)
	}
	if !professional.IsProfessional() {
		s.logger.Warn("ReplaceSchedule: user id=%d is not a professional", req.ProfessionalID)
		return nil, ErrProfessionalNotFound
	}

	// Валидируем окна
	windows := req.ToDomainWindows()
	if err := validateWindows(windows); err != nil {
		s.logger.Warn("ReplaceSchedule: validation failed for professional=%d: %v", req.ProfessionalID, err)
		return nil, err
	}

	// Замена расписания - удаление и вставка в одной транзакции
	var saved []domain.AvailabilityWindow
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		saved, err = s.scheduleRepo.ReplaceForProfessional(txCtx, req.ProfessionalID, windows)
		if err != nil {
			return fmt.Errorf("%w: ReplaceSchedule - repository error: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ReplaceSchedule: failed to replace schedule for professional=%d: %v",
			req.ProfessionalID, err)
		return nil, err
	}

	// Новое расписание делает весь кеш слотов специалиста устаревшим
	s.slotCache.InvalidateProfessional(ctx, req.ProfessionalID)

	s.logger.Info("ReplaceSchedule: successfully replaced schedule for professional=%d, windows=%d",
		req.ProfessionalID, len(saved))
	return models.FromDomainWindows(req.ProfessionalID, saved), nil
}

// validateWindows проверяет каждое окно и отсутствие пересечений внутри дня недели
func validateWindows(windows []domain.AvailabilityWindow) error {
	for i := range windows {
		if err := windows[i].Validate(); err != nil {
			return fmt.Errorf("%w: window %d: %v", ErrInvalidWindow, i, err)
		}
	}

	// Активные окна одного дня не должны пересекаться между собой
	for i := range windows {
		if !windows[i].Active {
			continue
		}
		for j := i + 1; j < len(windows); j++ {
			if !windows[j].Active || windows[i].Weekday != windows[j].Weekday {
				continue
			}
			if windows[i].StartTime.IsBefore(windows[j].EndTime) &&
				windows[j].StartTime.IsBefore(windows[i].EndTime) {
				return fmt.Errorf("%w: windows %d and %d", ErrOverlappingWindows, i, j)
			}
		}
	}

	return nil
}
