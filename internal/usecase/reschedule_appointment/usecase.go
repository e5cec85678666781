package reschedule_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	appointmentRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/appointment"
)

// UseCase use case для переноса записи на другой слот
type UseCase struct {
	appointmentRepo         AppointmentRepository
	scheduleRepo            ScheduleRepository
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
		slotCache:               slotCache,
		txManager:               txManager,
		timeProvider:            &RealTimeProvider{},
		location:                location,
		minBookingNoticeMinutes: minBookingNoticeMinutes,
		advanceBookingDays:      advanceBookingDays,
		logger:                  logger,
	}
}

// Execute выполняет use case переноса записи.
// Проверка нового слота идет в той же сериализуемой транзакции, что и перенос:
// повторяет дисциплину создания записи, гонку добивает exclusion constraint.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RescheduleAppointment: appointment=%d, actor=%d, date=%s, time=%s",
		req.AppointmentID, req.Actor.UserID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RescheduleAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Валидация новой даты
	if err := validateDate(req.Date, now, uc.advanceBookingDays, uc.location); err != nil {
		uc.logger.Warn("RescheduleAppointment: date validation failed: %v", err)
		return nil, err
	}

	var result *domain.Appointment
	var oldDate string

	// 4. Выполняем операции с БД в сериализуемой транзакции
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 4.1. Получаем запись
		appointment, err := uc.appointmentRepo.GetByID(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("RescheduleAppointment: appointment id=%d not found", req.AppointmentID)
				return ErrAppointmentNotFound
			}
			uc.logger.Error("RescheduleAppointment: failed to get appointment id=%d: %v", req.AppointmentID, err)
			return fmt.Errorf("%w: failed to get appointment: %w", ErrInternal, err)
		}

		// 4.2. Переносить запись могут ее пациент, ее специалист и администратор
		if !canReschedule(req.Actor, appointment) {
			uc.logger.Warn("RescheduleAppointment: actor id=%d has no access to appointment id=%d",
				req.Actor.UserID, appointment.ID)
			return ErrAccessDenied
		}

		// 4.3. Терминальные записи не переносятся
		if !appointment.CanBeRescheduled() {
			uc.logger.Warn("RescheduleAppointment: appointment id=%d in status %s cannot be rescheduled",
				appointment.ID, appointment.Status)
			return ErrCannotReschedule
		}

		oldDate = appointment.StartsAt.In(uc.location).Format(domain.DateFormat)

		// 4.4. Вычисляем новый интервал, длительность записи не меняется
		startsAt, err := req.StartTime.OnDate(domain.LocalDay(req.Date, uc.location), uc.location)
		if err != nil {
			uc.logger.Warn("RescheduleAppointment: failed to resolve start time: %v", err)
			return fmt.Errorf("%w: invalid start time: %v", ErrInvalidInput, err)
		}
		endsAt := startsAt.Add(time.Duration(appointment.DurationMinutes) * time.Minute)

		// 4.5. Проверяем минимальное время до начала записи
		minStart := now.Add(time.Duration(uc.minBookingNoticeMinutes) * time.Minute)
		if !startsAt.After(minStart) {
			uc.logger.Warn("RescheduleAppointment: slot at %s violates booking notice", startsAt)
			return fmt.Errorf("%w: must book at least %d minutes in advance",
				ErrTooLateToBook, uc.minBookingNoticeMinutes)
		}

		// 4.6. Новый слот должен помещаться в окно расписания
		windows, err := uc.scheduleRepo.ListByProfessional(txCtx, appointment.ProfessionalID, true)
		if err != nil {
			uc.logger.Error("RescheduleAppointment: failed to get schedule: %v", err)
			return fmt.Errorf("%w: failed to get schedule: %w", ErrInternal, err)
		}

		candidate := domain.Interval{Start: startsAt.UTC(), End: endsAt.UTC()}
		if !fitsSchedule(windows, candidate, req.Date, uc.location) {
			uc.logger.Warn("RescheduleAppointment: slot %s is outside schedule of professional id=%d",
				req.StartTime, appointment.ProfessionalID)
			return ErrOutsideSchedule
		}

		// 4.7. Читаем записи за новые сутки с блокировкой и проверяем пересечения,
		// саму переносимую запись из проверки исключаем
		dayStart := domain.LocalDay(req.Date, uc.location).UTC()
		dayEnd := dayStart.Add(24 * time.Hour)

		filter := domain.ProfessionalAppointmentsFilter{
			ProfessionalID: appointment.ProfessionalID,
			From:           &dayStart,
			To:             &dayEnd,
		}

		appointments, err := uc.appointmentRepo.GetByProfessionalWithFilter(txCtx, filter)
		if err != nil {
			uc.logger.Error("RescheduleAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
		}

		others := make([]*domain.Appointment, 0, len(appointments))
		for _, a := range appointments {
			if a.ID != appointment.ID {
				others = append(others, a)
			}
		}

		if candidate.OverlapsAny(domain.ActiveIntervals(others)) {
			uc.logger.Warn("RescheduleAppointment: slot %s already taken for professional id=%d",
				req.StartTime, appointment.ProfessionalID)
			return ErrSlotNotAvailable
		}

		// 4.8. Переносим запись
		if err := uc.appointmentRepo.Reschedule(txCtx, appointment.ID, candidate.Start, candidate.End); err != nil {
			if errors.Is(err, appointmentRepo.ErrSlotConflict) {
				uc.logger.Warn("RescheduleAppointment: exclusion constraint rejected slot %s", req.StartTime)
				return ErrSlotNotAvailable
			}
			uc.logger.Error("RescheduleAppointment: failed to reschedule appointment id=%d: %v",
				appointment.ID, err)
			return fmt.Errorf("%w: failed to reschedule appointment: %w", ErrInternal, err)
		}

		appointment.StartsAt = candidate.Start
		appointment.EndsAt = candidate.End
		result = appointment
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("RescheduleAppointment: successfully rescheduled appointment id=%d", result.ID)

	// 5. Инвалидируем кеш слотов на старый и новый день
	newDate := req.Date.Format(domain.DateFormat)
	uc.slotCache.InvalidateDay(ctx, result.ProfessionalID, oldDate)
	if newDate != oldDate {
		uc.slotCache.InvalidateDay(ctx, result.ProfessionalID, newDate)
	}

	return toResponse(result, uc.location), nil
}

// canReschedule проверяет право инициатора на перенос записи
func canReschedule(actor domain.Actor, appointment *domain.Appointment) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.UserID == appointment.PatientID || actor.UserID == appointment.ProfessionalID
}
