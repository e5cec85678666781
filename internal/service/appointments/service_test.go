package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	appointmentRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/appointment"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/notifyservice"
	"github.com/m04kA/Clinic-BookingService/internal/integrations/profileservice"
	"github.com/m04kA/Clinic-BookingService/internal/service/appointments/models"
	"github.com/m04kA/Clinic-BookingService/pkg/ptr"
)

// -- Fakes --

type memAppointmentRepo struct {
	mu    sync.Mutex
	items map[int64]*domain.Appointment
}

func newMemAppointmentRepo(items ...*domain.Appointment) *memAppointmentRepo {
	repo := &memAppointmentRepo{items: make(map[int64]*domain.Appointment)}
	for _, a := range items {
		repo.items[a.ID] = a
	}
	return repo
}

func (m *memAppointmentRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.items[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memAppointmentRepo) GetByPatient(_ context.Context, patientID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Appointment
	for _, a := range m.items {
		if a.PatientID != patientID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *memAppointmentRepo) GetByProfessionalWithFilter(_ context.Context, filter domain.ProfessionalAppointmentsFilter) ([]*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Appointment
	for _, a := range m.items {
		if a.ProfessionalID != filter.ProfessionalID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if !filter.IncludeInactive && !a.IsActive() {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *memAppointmentRepo) UpdateStatus(_ context.Context, id int64, status domain.AppointmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.items[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	a.Status = status
	return nil
}

func (m *memAppointmentRepo) Cancel(_ context.Context, id int64, status domain.AppointmentStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.items[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
	now := time.Now()
	a.Status = status
	a.CancellationReason = &reason
	a.CancelledAt = &now
	return nil
}

type fakeProfileClient struct {
	users map[int64]*profileservice.User
}

func (f *fakeProfileClient) GetUserWithGracefulDegradation(_ context.Context, userID int64) (*profileservice.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, profileservice.ErrUserNotFound
	}
	return u, nil
}

type fakeNotifyClient struct {
	mu     sync.Mutex
	events []notifyservice.AppointmentEvent
}

func (f *fakeNotifyClient) NotifyAppointmentEvent(_ context.Context, event notifyservice.AppointmentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeSlotCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (f *fakeSlotCache) InvalidateDay(_ context.Context, _ int64, date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, date)
}

func (f *fakeSlotCache) days() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invalidated...)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// -- Fixture --

var testLoc = time.FixedZone("MSK", 3*60*60)

// Запись пациента 1 к специалисту 10: вторник 2025-06-03, 10:00-10:30 MSK
func pendingAppointment() *domain.Appointment {
	return &domain.Appointment{
		ID:              100,
		PatientID:       1,
		ProfessionalID:  10,
		ServiceID:       5,
		StartsAt:        time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC),
		EndsAt:          time.Date(2025, 6, 3, 7, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          domain.StatusPending,
		ServiceName:     "Консультация",
		ServicePrice:    1500,
	}
}

func newTestService(repo *memAppointmentRepo) (*Service, *fakeSlotCache) {
	cache := &fakeSlotCache{}
	profiles := &fakeProfileClient{users: map[int64]*profileservice.User{}}
	svc := NewService(repo, profiles, &fakeNotifyClient{}, cache, testLoc, noopLogger{})
	return svc, cache
}

// -- Tests --

func TestGetByID_Access(t *testing.T) {
	cases := []struct {
		name    string
		actor   domain.Actor
		wantErr error
	}{
		{"patient owner", domain.Actor{UserID: 1, Role: domain.RolePatient}, nil},
		{"professional owner", domain.Actor{UserID: 10, Role: domain.RoleProfessional}, nil},
		{"admin", domain.Actor{UserID: 99, Role: domain.RoleAdmin}, nil},
		{"stranger patient", domain.Actor{UserID: 2, Role: domain.RolePatient}, ErrAccessDenied},
		{"stranger professional", domain.Actor{UserID: 11, Role: domain.RoleProfessional}, ErrAccessDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

			resp, err := svc.GetByID(context.Background(), 100, tc.actor)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(100), resp.ID)
			// Дата и время в таймзоне клиники, интервал в UTC
			assert.Equal(t, "2025-06-03", resp.Date)
			assert.Equal(t, "10:00", resp.StartTime)
			assert.Equal(t, "2025-06-03T07:00:00Z", resp.StartsAt)
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newTestService(newMemAppointmentRepo())

	_, err := svc.GetByID(context.Background(), 404, domain.Actor{UserID: 1, Role: domain.RolePatient})

	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestGetPatientAppointments_OnlyOwnOrAdmin(t *testing.T) {
	svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

	// Свои записи
	resp, err := svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		Actor:     domain.Actor{UserID: 1, Role: domain.RolePatient},
		PatientID: 1,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 1)

	// Чужие записи
	_, err = svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		Actor:     domain.Actor{UserID: 2, Role: domain.RolePatient},
		PatientID: 1,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Администратору можно
	resp, err = svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		Actor:     domain.Actor{UserID: 99, Role: domain.RoleAdmin},
		PatientID: 1,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 1)
}

func TestGetPatientAppointments_StatusFilter(t *testing.T) {
	cancelled := pendingAppointment()
	cancelled.ID = 101
	cancelled.Status = domain.StatusCancelledByPatient

	svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment(), cancelled))

	resp, err := svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		Actor:     domain.Actor{UserID: 1, Role: domain.RolePatient},
		PatientID: 1,
		Status:    ptr.Ptr("pending"),
	})

	require.NoError(t, err)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "pending", resp.Appointments[0].Status)

	_, err = svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		Actor:     domain.Actor{UserID: 1, Role: domain.RolePatient},
		PatientID: 1,
		Status:    ptr.Ptr("unknown"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetProfessionalAppointments(t *testing.T) {
	svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

	resp, err := svc.GetProfessionalAppointments(context.Background(), &models.GetProfessionalAppointmentsRequest{
		Actor:          domain.Actor{UserID: 10, Role: domain.RoleProfessional},
		ProfessionalID: 10,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 1)

	// Чужой кабинет
	_, err = svc.GetProfessionalAppointments(context.Background(), &models.GetProfessionalAppointmentsRequest{
		Actor:          domain.Actor{UserID: 11, Role: domain.RoleProfessional},
		ProfessionalID: 10,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Период с from >= to
	from := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	_, err = svc.GetProfessionalAppointments(context.Background(), &models.GetProfessionalAppointmentsRequest{
		Actor:          domain.Actor{UserID: 10, Role: domain.RoleProfessional},
		ProfessionalID: 10,
		From:           &from,
		To:             &to,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancel_ByPatient(t *testing.T) {
	repo := newMemAppointmentRepo(pendingAppointment())
	svc, cache := newTestService(repo)

	err := svc.Cancel(context.Background(), 100, &models.CancelAppointmentRequest{
		Actor:              domain.Actor{UserID: 1, Role: domain.RolePatient},
		CancellationReason: "не смогу прийти",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelledByPatient, repo.items[100].Status)
	require.NotNil(t, repo.items[100].CancellationReason)
	assert.Equal(t, "не смогу прийти", *repo.items[100].CancellationReason)
	assert.NotNil(t, repo.items[100].CancelledAt)

	// Отмена освобождает слот на день записи
	assert.Equal(t, []string{"2025-06-03"}, cache.days())
}

func TestCancel_ByProfessionalAndAdmin(t *testing.T) {
	for _, actor := range []domain.Actor{
		{UserID: 10, Role: domain.RoleProfessional},
		{UserID: 99, Role: domain.RoleAdmin},
	} {
		repo := newMemAppointmentRepo(pendingAppointment())
		svc, _ := newTestService(repo)

		err := svc.Cancel(context.Background(), 100, &models.CancelAppointmentRequest{Actor: actor})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelledByProfessional, repo.items[100].Status)
	}
}

func TestCancel_StrangerDenied(t *testing.T) {
	svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

	err := svc.Cancel(context.Background(), 100, &models.CancelAppointmentRequest{
		Actor: domain.Actor{UserID: 2, Role: domain.RolePatient},
	})

	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCancel_TerminalStatusRejected(t *testing.T) {
	for _, status := range []domain.AppointmentStatus{
		domain.StatusCompleted,
		domain.StatusNoShow,
		domain.StatusCancelledByPatient,
	} {
		a := pendingAppointment()
		a.Status = status
		svc, _ := newTestService(newMemAppointmentRepo(a))

		err := svc.Cancel(context.Background(), 100, &models.CancelAppointmentRequest{
			Actor: domain.Actor{UserID: 1, Role: domain.RolePatient},
		})

		assert.ErrorIs(t, err, ErrCannotCancel, "status %s", status)
	}
}

func TestUpdateStatus_AllowedTransitions(t *testing.T) {
	professional := domain.Actor{UserID: 10, Role: domain.RoleProfessional}

	t.Run("pending to confirmed to completed", func(t *testing.T) {
		repo := newMemAppointmentRepo(pendingAppointment())
		svc, _ := newTestService(repo)

		err := svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
			Actor: professional, Status: "confirmed",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, repo.items[100].Status)

		err = svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
			Actor: professional, Status: "completed",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, repo.items[100].Status)
	})

	t.Run("no_show frees the slot", func(t *testing.T) {
		a := pendingAppointment()
		a.Status = domain.StatusConfirmed
		repo := newMemAppointmentRepo(a)
		svc, cache := newTestService(repo)

		err := svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
			Actor: professional, Status: "no_show",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusNoShow, repo.items[100].Status)
		assert.Equal(t, []string{"2025-06-03"}, cache.days())
	})
}

func TestUpdateStatus_ForbiddenTransitions(t *testing.T) {
	professional := domain.Actor{UserID: 10, Role: domain.RoleProfessional}

	cases := []struct {
		from domain.AppointmentStatus
		to   string
	}{
		{domain.StatusCompleted, "confirmed"},
		{domain.StatusCompleted, "pending"},
		{domain.StatusNoShow, "completed"},
		{domain.StatusCancelledByPatient, "confirmed"},
		{domain.StatusPending, "pending"},
	}

	for _, tc := range cases {
		a := pendingAppointment()
		a.Status = tc.from
		svc, _ := newTestService(newMemAppointmentRepo(a))

		err := svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
			Actor: professional, Status: tc.to,
		})

		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateStatus_CancellationGoesThroughCancel(t *testing.T) {
	professional := domain.Actor{UserID: 10, Role: domain.RoleProfessional}

	for _, status := range []string{"cancelled_by_patient", "cancelled_by_professional"} {
		svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

		err := svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
			Actor: professional, Status: status,
		})

		assert.ErrorIs(t, err, ErrInvalidStatus, "status %s", status)
	}
}

func TestUpdateStatus_PatientDenied(t *testing.T) {
	svc, _ := newTestService(newMemAppointmentRepo(pendingAppointment()))

	err := svc.UpdateStatus(context.Background(), 100, &models.UpdateStatusRequest{
		Actor:  domain.Actor{UserID: 1, Role: domain.RolePatient},
		Status: "confirmed",
	})

	assert.ErrorIs(t, err, ErrAccessDenied)
}
