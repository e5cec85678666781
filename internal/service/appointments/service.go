package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	appointmentRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/appointment"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/notifyservice"
	"github.com/m04kA/Clinic-BookingService/internal/service/appointments/models"
)

const notifyTimeout = 5 * time.Second

// Service сервис для работы с записями на прием
type Service struct {
	appointmentRepo AppointmentRepository
	profileClient   ProfileServiceClient
	notifyClient    NotifyServiceClient
	slotCache       SlotCache
	location        *time.Location
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	profileClient ProfileServiceClient,
	notifyClient NotifyServiceClient,
	slotCache SlotCache,
	location *time.Location,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		profileClient:   profileClient,
		notifyClient:    notifyClient,
		slotCache:       slotCache,
		location:        location,
		logger:          logger,
	}
}

// GetByID получает запись по ID
// Запись видят ее пациент, ее специалист и администратор
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for user=%d", id, actor.UserID)

	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if !s.canView(appointment, actor) {
		s.logger.Warn("GetByID: access denied for user=%d to appointment id=%d", actor.UserID, id)
		return nil, ErrAccessDenied
	}

	s.logger.Info("GetByID: successfully fetched appointment id=%d", id)
	return models.FromDomainAppointment(appointment, s.location), nil
}

// GetPatientAppointments получает историю записей пациента
// Пациент видит только свои записи, администратор - любые
func (s *Service) GetPatientAppointments(ctx context.Context, req *models.GetPatientAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetPatientAppointments: fetching appointments for patient=%d, status=%v",
		req.PatientID, req.Status)

	if req.Actor.UserID != req.PatientID && !req.Actor.IsAdmin() {
		s.logger.Warn("GetPatientAppointments: access denied for user=%d to patient=%d",
			req.Actor.UserID, req.PatientID)
		return nil, ErrAccessDenied
	}

	// Конвертируем статус из строки в domain.AppointmentStatus
	var domainStatus *domain.AppointmentStatus
	if req.Status != nil {
		status, err := models.ToDomainAppointmentStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetPatientAppointments: invalid status=%s for patient=%d", *req.Status, req.PatientID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	appointments, err := s.appointmentRepo.GetByPatient(ctx, req.PatientID, domainStatus)
	if err != nil {
		s.logger.Error("GetPatientAppointments: repository error for patient=%d: %v", req.PatientID, err)
		return nil, fmt.Errorf("%w: GetPatientAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetPatientAppointments: successfully fetched %d appointments for patient=%d",
		len(appointments), req.PatientID)
	return models.FromDomainAppointmentList(appointments, s.location), nil
}

// GetProfessionalAppointments получает записи специалиста с гибкой фильтрацией
// Поддерживает фильтрацию по периоду, статусу и включению неактивных записей
// Доступно самому специалисту и администратору
func (s *Service) GetProfessionalAppointments(ctx context.Context, req *models.GetProfessionalAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("GetProfessionalAppointments: fetching appointments for professional=%d, user=%d",
		req.ProfessionalID, req.Actor.UserID)

	if req.Actor.UserID != req.ProfessionalID && !req.Actor.IsAdmin() {
		s.logger.Warn("GetProfessionalAppointments: access denied for user=%d to professional=%d",
			req.Actor.UserID, req.ProfessionalID)
		return nil, ErrAccessDenied
	}

	if req.From != nil && req.To != nil && !req.From.Before(*req.To) {
		s.logger.Warn("GetProfessionalAppointments: invalid period for professional=%d", req.ProfessionalID)
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidInput)
	}

	// Конвертируем request в domain фильтр
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetProfessionalAppointments: invalid filter for professional=%d: %v",
			req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	appointments, err := s.appointmentRepo.GetByProfessionalWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetProfessionalAppointments: repository error for professional=%d: %v",
			req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: GetProfessionalAppointments - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetProfessionalAppointments: successfully fetched %d appointments for professional=%d",
		len(appointments), req.ProfessionalID)
	return models.FromDomainAppointmentList(appointments, s.location), nil
}

// Cancel отменяет запись
// Пациент отменяет свою запись (cancelled_by_patient), специалист или
// администратор - со стороны клиники (cancelled_by_professional)
func (s *Service) Cancel(ctx context.Context, appointmentID int64, req *models.CancelAppointmentRequest) error {
	s.logger.Info("Cancel: cancelling appointment id=%d by user=%d", appointmentID, req.Actor.UserID)

	if len(req.CancellationReason) > domain.MaxCancellationReasonLen {
		return fmt.Errorf("%w: cancellation reason must not exceed %d characters",
			ErrInvalidInput, domain.MaxCancellationReasonLen)
	}

	// Получаем запись
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("Cancel: appointment id=%d not found", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("Cancel: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	// Проверяем, можно ли отменить запись
	if !appointment.CanBeCancelled() {
		s.logger.Warn("Cancel: appointment id=%d cannot be cancelled, status=%s",
			appointmentID, appointment.Status)
		return ErrCannotCancel
	}

	// Определяем статус отмены по инициатору
	var cancelStatus domain.AppointmentStatus
	switch {
	case appointment.PatientID == req.Actor.UserID:
		cancelStatus = domain.StatusCancelledByPatient
	case appointment.ProfessionalID == req.Actor.UserID || req.Actor.IsAdmin():
		cancelStatus = domain.StatusCancelledByProfessional
	default:
		s.logger.Warn("Cancel: access denied for user=%d to cancel appointment id=%d",
			req.Actor.UserID, appointmentID)
		return ErrAccessDenied
	}

	// Отменяем запись
	if err := s.appointmentRepo.Cancel(ctx, appointmentID, cancelStatus, req.CancellationReason); err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("Cancel: appointment id=%d not found during cancellation", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("Cancel: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Cancel: successfully cancelled appointment id=%d with status=%s",
		appointmentID, cancelStatus)

	// Отмена освобождает слот - инвалидируем кеш на день записи
	s.invalidateSlotCache(ctx, appointment)

	// Уведомляем вторую сторону асинхронно
	s.sendCancelledEvent(appointment, req.CancellationReason)

	return nil
}

// UpdateStatus обновляет статус записи по правилам переходов
// Доступно специалисту записи и администратору. Отмена идет через Cancel.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID int64, req *models.UpdateStatusRequest) error {
	s.logger.Info("UpdateStatus: updating appointment id=%d to status=%s by user=%d",
		appointmentID, req.Status, req.Actor.UserID)

	// Получаем запись
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("UpdateStatus: appointment id=%d not found", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("UpdateStatus: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	// Проверяем права доступа
	if appointment.ProfessionalID != req.Actor.UserID && !req.Actor.IsAdmin() {
		s.logger.Warn("UpdateStatus: access denied for user=%d to appointment id=%d",
			req.Actor.UserID, appointmentID)
		return ErrAccessDenied
	}

	// Валидируем и конвертируем статус
	newStatus, err := models.ToDomainAppointmentStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for appointment id=%d", req.Status, appointmentID)
		return ErrInvalidStatus
	}

	// Отмена идет через Cancel, там фиксируется причина и инициатор
	if newStatus == domain.StatusCancelledByPatient || newStatus == domain.StatusCancelledByProfessional {
		s.logger.Warn("UpdateStatus: cancellation of appointment id=%d requested via status update", appointmentID)
		return ErrInvalidStatus
	}

	// Проверяем допустимость перехода
	if !appointment.CanTransitionTo(newStatus) {
		s.logger.Warn("UpdateStatus: transition %s -> %s is not allowed for appointment id=%d",
			appointment.Status, newStatus, appointmentID)
		return ErrInvalidTransition
	}

	// Обновляем статус
	if err := s.appointmentRepo.UpdateStatus(ctx, appointmentID, newStatus); err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("UpdateStatus: appointment id=%d not found during update", appointmentID)
			return ErrAppointmentNotFound
		}
		s.logger.Error("UpdateStatus: repository error for appointment id=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdateStatus: successfully updated appointment id=%d to status=%s",
		appointmentID, newStatus)

	// no_show освобождает слот
	if newStatus == domain.StatusNoShow {
		s.invalidateSlotCache(ctx, appointment)
	}

	return nil
}

// Вспомогательные методы

// canView проверяет право инициатора видеть запись
func (s *Service) canView(appointment *domain.Appointment, actor domain.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return appointment.PatientID == actor.UserID || appointment.ProfessionalID == actor.UserID
}

func (s *Service) invalidateSlotCache(ctx context.Context, appointment *domain.Appointment) {
	date := appointment.StartsAt.In(s.location).Format(domain.DateFormat)
	s.slotCache.InvalidateDay(ctx, appointment.ProfessionalID, date)
}

func (s *Service) sendCancelledEvent(appointment *domain.Appointment, reason string) {
	event := notifyservice.AppointmentEvent{
		Type:           notifyservice.EventAppointmentCancelled,
		AppointmentID:  appointment.ID,
		PatientID:      appointment.PatientID,
		ProfessionalID: appointment.ProfessionalID,
		ServiceName:    appointment.ServiceName,
		StartsAt:       appointment.StartsAt.Format(time.RFC3339),
	}
	if reason != "" {
		event.Reason = &reason
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		// Обогащаем событие именем пациента; при недоступности ProfileService
		// уведомление уходит без него
		if patient, err := s.profileClient.GetUserWithGracefulDegradation(nctx, appointment.PatientID); err == nil {
			event.PatientName = patient.FullName
		}

		s.notifyClient.NotifyAppointmentEvent(nctx, event)
	}()
}
