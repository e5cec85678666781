package get_available_slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	serviceRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/service"
	profileClient "github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
)

// UseCase use case для получения доступных слотов для записи
type UseCase struct {
	appointmentRepo         AppointmentRepository
	scheduleRepo            ScheduleRepository
	serviceRepo             ServiceRepository
	profileClient           ProfileServiceClient
	slotCache               SlotCache
	timeProvider            TimeProvider
	location                *time.Location
	minBookingNoticeMinutes int
	advanceBookingDays      int
	logger                  Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	scheduleRepo ScheduleRepository,
	serviceRepo ServiceRepository,
	profileClient ProfileServiceClient,
	slotCache SlotCache,
	location *time.Location,
	minBookingNoticeMinutes int,
	advanceBookingDays int,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo:         appointmentRepo,
		scheduleRepo:            scheduleRepo,
		serviceRepo:             serviceRepo,
		profileClient:           profileClient,
		slotCache:               slotCache,
		timeProvider:            &RealTimeProvider{},
		location:                location,
		minBookingNoticeMinutes: minBookingNoticeMinutes,
		advanceBookingDays:      advanceBookingDays,
		logger:                  logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: user=%d, professional=%d, service=%d, date=%s",
		req.UserID, req.ProfessionalID, req.ServiceID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Валидация даты с учетом горизонта записи
	if err := validateDate(req.Date, now, uc.advanceBookingDays, uc.location); err != nil {
		uc.logger.Warn("GetAvailableSlots: date validation failed: %v", err)
		return nil, err
	}

	// 4. Проверяем кеш. При попадании не ходим в БД вообще.
	dateStr := req.Date.Format(domain.DateFormat)
	if cached, ok := uc.slotCache.Get(ctx, req.ProfessionalID, req.ServiceID, dateStr); ok {
		uc.logger.Info("GetAvailableSlots: cache hit, professional=%d, service=%d, date=%s, slots=%d",
			req.ProfessionalID, req.ServiceID, dateStr, len(cached))
		return uc.buildResponse(req, cached), nil
	}

	// 5. Проверяем, что специалист существует и имеет роль professional
	professional, err := uc.profileClient.GetUser(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, profileClient.ErrUserNotFound) {
			uc.logger.Warn("GetAvailableSlots: professional id=%d not found", req.ProfessionalID)
			return nil, ErrProfessionalNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get professional id=%d: %v", req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: failed to get professional: %v", ErrInternal, err)
	}
	if !professional.IsProfessional() {
		uc.logger.Warn("GetAvailableSlots: user id=%d is not a professional", req.ProfessionalID)
		return nil, ErrProfessionalNotFound
	}

	// 6. Получаем услугу и проверяем, что она доступна для записи
	service, err := uc.serviceRepo.GetByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, serviceRepo.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if !service.IsBookable() {
		uc.logger.Warn("GetAvailableSlots: service id=%d is not bookable", req.ServiceID)
		return nil, ErrServiceUnavailable
	}

	// 7. Получаем активные окна расписания специалиста
	windows, err := uc.scheduleRepo.ListByProfessional(ctx, req.ProfessionalID, true)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get schedule for professional id=%d: %v",
			req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: failed to get schedule: %v", ErrInternal, err)
	}
	if len(windows) == 0 {
		uc.logger.Info("GetAvailableSlots: professional id=%d has no active windows", req.ProfessionalID)
		return uc.buildResponse(req, []domain.Slot{}), nil
	}

	// 8. Получаем активные записи специалиста за сутки даты (в таймзоне клиники)
	dayStart := domain.LocalDay(req.Date, uc.location).UTC()
	dayEnd := dayStart.Add(24 * time.Hour)

	filter := domain.ProfessionalAppointmentsFilter{
		ProfessionalID: req.ProfessionalID,
		From:           &dayStart,
		To:             &dayEnd,
	}

	appointments, err := uc.appointmentRepo.GetByProfessionalWithFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 9. Генерируем слоты. Минимальное время до записи учитываем сдвигом "сейчас".
	effectiveNow := now.Add(time.Duration(uc.minBookingNoticeMinutes) * time.Minute)
	slots := domain.GenerateSlots(
		windows,
		domain.ActiveIntervals(appointments),
		service.DurationMinutes,
		req.Date,
		effectiveNow,
		uc.location,
	)

	// 10. Кладем результат в кеш
	uc.slotCache.Set(ctx, req.ProfessionalID, req.ServiceID, dateStr, slots)

	uc.logger.Info("GetAvailableSlots: generated %d slots for professional=%d, service=%d, date=%s",
		len(slots), req.ProfessionalID, req.ServiceID, dateStr)

	return uc.buildResponse(req, slots), nil
}

func (uc *UseCase) buildResponse(req *Request, slots []domain.Slot) *Response {
	return &Response{
		Date:           req.Date,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Slots:          slots,
	}
}
