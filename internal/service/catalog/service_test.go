package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	serviceRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/service"
	"github.com/m04kA/Clinic-BookingService/internal/service/catalog/models"
	"github.com/m04kA/Clinic-BookingService/pkg/ptr"
)

// -- Fakes --

type memServiceRepo struct {
	nextID int64
	items  map[int64]*domain.Service
}

func newMemServiceRepo(items ...*domain.Service) *memServiceRepo {
	repo := &memServiceRepo{nextID: 1, items: make(map[int64]*domain.Service)}
	for _, s := range items {
		repo.items[s.ID] = s
		if s.ID >= repo.nextID {
			repo.nextID = s.ID + 1
		}
	}
	return repo
}

func (m *memServiceRepo) Create(_ context.Context, s *domain.Service) (*domain.Service, error) {
	created := *s
	created.ID = m.nextID
	m.nextID++
	m.items[created.ID] = &created
	return &created, nil
}

func (m *memServiceRepo) GetByID(_ context.Context, id int64) (*domain.Service, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, serviceRepo.ErrServiceNotFound
	}
	return s, nil
}

func (m *memServiceRepo) List(_ context.Context, onlyActive bool) ([]*domain.Service, error) {
	var result []*domain.Service
	for _, s := range m.items {
		if onlyActive && !s.Active {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (m *memServiceRepo) Update(_ context.Context, id int64, update serviceRepo.ServiceUpdate) error {
	s, ok := m.items[id]
	if !ok {
		return serviceRepo.ErrServiceNotFound
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		s.Description = update.Description
	}
	if update.Price != nil {
		s.Price = *update.Price
	}
	if update.DurationMinutes != nil {
		s.DurationMinutes = *update.DurationMinutes
	}
	if update.Active != nil {
		s.Active = *update.Active
	}
	return nil
}

func (m *memServiceRepo) Deactivate(_ context.Context, id int64) error {
	s, ok := m.items[id]
	if !ok {
		return serviceRepo.ErrServiceNotFound
	}
	s.Active = false
	return nil
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// -- Fixture --

var (
	adminActor   = domain.Actor{UserID: 99, Role: domain.RoleAdmin}
	patientActor = domain.Actor{UserID: 1, Role: domain.RolePatient}
)

func consultation() *domain.Service {
	return &domain.Service{ID: 5, Title: "Консультация", Price: 1500, DurationMinutes: 30, Active: true}
}

func inactiveService() *domain.Service {
	return &domain.Service{ID: 6, Title: "Архивная услуга", Price: 500, DurationMinutes: 15, Active: false}
}

// -- Tests --

func TestCreate_AdminOnly(t *testing.T) {
	svc := NewService(newMemServiceRepo(), noopLogger{})

	resp, err := svc.Create(context.Background(), &models.CreateServiceRequest{
		Actor: adminActor, Title: "УЗИ", Price: 2000, DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, "УЗИ", resp.Title)
	assert.True(t, resp.Active)

	_, err = svc.Create(context.Background(), &models.CreateServiceRequest{
		Actor: patientActor, Title: "УЗИ", Price: 2000, DurationMinutes: 45,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMemServiceRepo(), noopLogger{})

	cases := []struct {
		name string
		req  models.CreateServiceRequest
	}{
		{"empty title", models.CreateServiceRequest{Actor: adminActor, Title: "  ", Price: 100, DurationMinutes: 30}},
		{"negative price", models.CreateServiceRequest{Actor: adminActor, Title: "УЗИ", Price: -1, DurationMinutes: 30}},
		{"duration too short", models.CreateServiceRequest{Actor: adminActor, Title: "УЗИ", Price: 100, DurationMinutes: 1}},
		{"duration too long", models.CreateServiceRequest{Actor: adminActor, Title: "УЗИ", Price: 100, DurationMinutes: 600}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			_, err := svc.Create(context.Background(), &req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := NewService(newMemServiceRepo(consultation()), noopLogger{})

	resp, err := svc.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Консультация", resp.Title)

	_, err = svc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestList_InactiveVisibleOnlyToAdmin(t *testing.T) {
	repo := newMemServiceRepo(consultation(), inactiveService())
	svc := NewService(repo, noopLogger{})

	// Пациент видит только активные, даже запросив includeInactive
	resp, err := svc.List(context.Background(), patientActor, true)
	require.NoError(t, err)
	assert.Len(t, resp.Services, 1)

	// Администратор с includeInactive видит все
	resp, err = svc.List(context.Background(), adminActor, true)
	require.NoError(t, err)
	assert.Len(t, resp.Services, 2)

	// Без флага даже администратор видит только активные
	resp, err = svc.List(context.Background(), adminActor, false)
	require.NoError(t, err)
	assert.Len(t, resp.Services, 1)
}

func TestUpdate_PartialUpdate(t *testing.T) {
	repo := newMemServiceRepo(consultation())
	svc := NewService(repo, noopLogger{})

	resp, err := svc.Update(context.Background(), 5, &models.UpdateServiceRequest{
		Actor: adminActor, Price: ptr.Ptr(1800.0),
	})

	require.NoError(t, err)
	assert.Equal(t, 1800.0, resp.Price)
	// Остальные поля не тронуты
	assert.Equal(t, "Консультация", resp.Title)
	assert.Equal(t, 30, resp.DurationMinutes)
}

func TestUpdate_Denied(t *testing.T) {
	svc := NewService(newMemServiceRepo(consultation()), noopLogger{})

	_, err := svc.Update(context.Background(), 5, &models.UpdateServiceRequest{
		Actor: patientActor, Price: ptr.Ptr(1800.0),
	})

	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestUpdate_EmptyRequestRejected(t *testing.T) {
	svc := NewService(newMemServiceRepo(consultation()), noopLogger{})

	_, err := svc.Update(context.Background(), 5, &models.UpdateServiceRequest{Actor: adminActor})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeactivate_SoftDelete(t *testing.T) {
	repo := newMemServiceRepo(consultation())
	svc := NewService(repo, noopLogger{})

	err := svc.Deactivate(context.Background(), 5, adminActor)
	require.NoError(t, err)
	// Услуга остается в каталоге, но перестает быть активной
	assert.False(t, repo.items[5].Active)

	err = svc.Deactivate(context.Background(), 5, patientActor)
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = svc.Deactivate(context.Background(), 404, adminActor)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}
