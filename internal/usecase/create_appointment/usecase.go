package create_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	appointmentRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/appointment"
	serviceRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/service"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/notifyservice"
	profileClient "github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
)

const notifyTimeout = 5 * time.Second

// UseCase use case для создания записи на прием
type UseCase struct {
	appointmentRepo         AppointmentRepository
	scheduleRepo            ScheduleRepository
	serviceRepo             ServiceRepository
	profileClient           ProfileServiceClient
	notifyClient            NotifyServiceClient
	slotCache               SlotCache
	txManager               TransactionManager
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
	notifyClient NotifyServiceClient,
	slotCache SlotCache,
	txManager TransactionManager,
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
		notifyClient:            notifyClient,
		slotCache:               slotCache,
		txManager:               txManager,
		timeProvider:            &RealTimeProvider{},
		location:                location,
		minBookingNoticeMinutes: minBookingNoticeMinutes,
		advanceBookingDays:      advanceBookingDays,
		logger:                  logger,
	}
}

// Execute выполняет use case создания записи.
// Конфликт за слот решают два уровня: проверка пересечений внутри сериализуемой
// транзакции и exclusion constraint в БД. При гонке ровно один запрос создаст запись.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: patient=%d, professional=%d, service=%d, date=%s, time=%s",
		req.PatientID, req.ProfessionalID, req.ServiceID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Валидация даты с учетом горизонта записи
	if err := validateDate(req.Date, now, uc.advanceBookingDays, uc.location); err != nil {
		uc.logger.Warn("CreateAppointment: date validation failed: %v", err)
		return nil, err
	}

	// 4. Идемпотентность: повтор запроса с тем же ключом возвращает уже созданную запись
	if req.IdempotencyKey != nil {
		existing, err := uc.appointmentRepo.GetByIdempotencyKey(ctx, req.PatientID, *req.IdempotencyKey)
		if err != nil && !errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			uc.logger.Error("CreateAppointment: failed to check idempotency key: %v", err)
			return nil, fmt.Errorf("%w: failed to check idempotency key: %v", ErrInternal, err)
		}
		if existing != nil {
			uc.logger.Info("CreateAppointment: idempotency hit, returning appointment id=%d", existing.ID)
			return toResponse(existing, uc.location), nil
		}
	}

	// 5. Проверяем пациента
	patient, err := uc.profileClient.GetUser(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, profileClient.ErrUserNotFound) {
			uc.logger.Warn("CreateAppointment: patient id=%d not found", req.PatientID)
			return nil, ErrPatientNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get patient id=%d: %v", req.PatientID, err)
		return nil, fmt.Errorf("%w: failed to get patient: %v", ErrInternal, err)
	}
	if !patient.Active {
		uc.logger.Warn("CreateAppointment: patient id=%d is not active", req.PatientID)
		return nil, ErrPatientNotFound
	}

	// 6. Проверяем специалиста
	professional, err := uc.profileClient.GetUser(ctx, req.ProfessionalID)
	if err != nil {
		if errors.Is(err, profileClient.ErrUserNotFound) {
			uc.logger.Warn("CreateAppointment: professional id=%d not found", req.ProfessionalID)
			return nil, ErrProfessionalNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get professional id=%d: %v", req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: failed to get professional: %v", ErrInternal, err)
	}
	if !professional.IsProfessional() {
		uc.logger.Warn("CreateAppointment: user id=%d is not a professional", req.ProfessionalID)
		return nil, ErrProfessionalNotFound
	}

	// Переменная для хранения результата
	var result *domain.Appointment

	// 7. Выполняем операции с БД в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 7.1. Получаем услугу
		service, err := uc.serviceRepo.GetByID(txCtx, req.ServiceID)
		if err != nil {
			if errors.Is(err, serviceRepo.ErrServiceNotFound) {
				uc.logger.Warn("CreateAppointment: service id=%d not found", req.ServiceID)
				return ErrServiceNotFound
			}
			uc.logger.Error("CreateAppointment: failed to get service id=%d: %v", req.ServiceID, err)
			return fmt.Errorf("%w: failed to get service: %w", ErrInternal, err)
		}
		if !service.IsBookable() {
			uc.logger.Warn("CreateAppointment: service id=%d is not bookable", req.ServiceID)
			return ErrServiceUnavailable
		}

		// 7.2. Вычисляем интервал записи в UTC из даты и времени в таймзоне клиники
		startsAt, err := req.StartTime.OnDate(domain.LocalDay(req.Date, uc.location), uc.location)
		if err != nil {
			uc.logger.Warn("CreateAppointment: failed to resolve start time: %v", err)
			return fmt.Errorf("%w: invalid start time: %v", ErrInvalidInput, err)
		}
		endsAt := startsAt.Add(time.Duration(service.DurationMinutes) * time.Minute)

		// 7.3. Проверяем минимальное время до начала записи
		minStart := now.Add(time.Duration(uc.minBookingNoticeMinutes) * time.Minute)
		if !startsAt.After(minStart) {
			uc.logger.Warn("CreateAppointment: slot at %s violates booking notice", startsAt)
			return fmt.Errorf("%w: must book at least %d minutes in advance",
				ErrTooLateToBook, uc.minBookingNoticeMinutes)
		}

		// 7.4. Слот должен целиком помещаться в окно расписания
		windows, err := uc.scheduleRepo.ListByProfessional(txCtx, req.ProfessionalID, true)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get schedule: %v", err)
			return fmt.Errorf("%w: failed to get schedule: %w", ErrInternal, err)
		}

		candidate := domain.Interval{Start: startsAt.UTC(), End: endsAt.UTC()}
		if !fitsSchedule(windows, candidate, req.Date, uc.location) {
			uc.logger.Warn("CreateAppointment: slot %s is outside schedule of professional id=%d",
				req.StartTime, req.ProfessionalID)
			return ErrOutsideSchedule
		}

		// 7.5. Читаем записи за сутки с блокировкой (FOR UPDATE) и проверяем пересечения
		dayStart := domain.LocalDay(req.Date, uc.location).UTC()
		dayEnd := dayStart.Add(24 * time.Hour)

		filter := domain.ProfessionalAppointmentsFilter{
			ProfessionalID: req.ProfessionalID,
			From:           &dayStart,
			To:             &dayEnd,
		}

		appointments, err := uc.appointmentRepo.GetByProfessionalWithFilter(txCtx, filter)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
		}

		if candidate.OverlapsAny(domain.ActiveIntervals(appointments)) {
			uc.logger.Warn("CreateAppointment: slot %s already taken for professional id=%d",
				req.StartTime, req.ProfessionalID)
			return ErrSlotNotAvailable
		}

		// 7.6. Создаем запись с денормализацией данных услуги
		appointment := &domain.Appointment{
			PatientID:      req.PatientID,
			ProfessionalID: req.ProfessionalID,
			ServiceID:      req.ServiceID,
			StartsAt:       candidate.Start,
			EndsAt:         candidate.End,
			Status:         domain.StatusPending,
			// Денормализация данных услуги
			ServiceName:     service.Title,
			ServicePrice:    service.Price,
			DurationMinutes: service.DurationMinutes,
			Notes:           req.Notes,
			IdempotencyKey:  req.IdempotencyKey,
		}

		created, err := uc.appointmentRepo.Create(txCtx, appointment)
		if err != nil {
			// Exclusion constraint - последняя линия обороны от гонки
			if errors.Is(err, appointmentRepo.ErrSlotConflict) {
				uc.logger.Warn("CreateAppointment: exclusion constraint rejected slot %s", req.StartTime)
				return ErrSlotNotAvailable
			}
			if errors.Is(err, appointmentRepo.ErrDuplicateIdempotencyKey) {
				return err
			}
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		// Параллельный запрос с тем же ключом успел первым - возвращаем его результат
		if errors.Is(err, appointmentRepo.ErrDuplicateIdempotencyKey) && req.IdempotencyKey != nil {
			existing, getErr := uc.appointmentRepo.GetByIdempotencyKey(ctx, req.PatientID, *req.IdempotencyKey)
			if getErr == nil {
				uc.logger.Info("CreateAppointment: duplicate idempotency key, returning appointment id=%d", existing.ID)
				return toResponse(existing, uc.location), nil
			}
			uc.logger.Error("CreateAppointment: failed to load appointment by idempotency key: %v", getErr)
			return nil, fmt.Errorf("%w: failed to load appointment by idempotency key: %v", ErrInternal, getErr)
		}
		return nil, err
	}

	uc.logger.Info("CreateAppointment: successfully created appointment id=%d", result.ID)

	// 8. Инвалидируем кеш слотов на день записи
	uc.slotCache.InvalidateDay(ctx, req.ProfessionalID, req.Date.Format(domain.DateFormat))

	// 9. Уведомление отправляем асинхронно, ответ клиенту не ждет NotifyService
	uc.sendCreatedEvent(result)

	return toResponse(result, uc.location), nil
}

func (uc *UseCase) sendCreatedEvent(a *domain.Appointment) {
	event := notifyservice.AppointmentEvent{
		Type:           notifyservice.EventAppointmentCreated,
		AppointmentID:  a.ID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		ServiceName:    a.ServiceName,
		StartsAt:       a.StartsAt.Format(time.RFC3339),
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		uc.notifyClient.NotifyAppointmentEvent(nctx, event)
	}()
}
