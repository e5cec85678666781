package create_appointment

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
	"github.com/m04kA/Clinic-BookingService/pkg/ptr"
	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// -- Fakes --

// memAppointmentRepo in-memory репозиторий, эмулирующий exclusion constraint
// и уникальный индекс по ключу идемпотентности
type memAppointmentRepo struct {
	mu     sync.Mutex
	nextID int64
	items  []*domain.Appointment
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{nextID: 1}
}

func (m *memAppointmentRepo) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := domain.Interval{Start: a.StartsAt, End: a.EndsAt}
	for _, existing := range m.items {
		if a.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			existing.PatientID == a.PatientID && *existing.IdempotencyKey == *a.IdempotencyKey {
			return nil, appointmentRepo.ErrDuplicateIdempotencyKey
		}
		if existing.ProfessionalID == a.ProfessionalID && existing.IsActive() &&
			candidate.Overlaps(existing.Interval()) {
			return nil, appointmentRepo.ErrSlotConflict
		}
	}

	created := *a
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.nextID++
	m.items = append(m.items, &created)
	return &created, nil
}

func (m *memAppointmentRepo) GetByIdempotencyKey(_ context.Context, patientID int64, key string) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.items {
		if a.PatientID == patientID && a.IdempotencyKey != nil && *a.IdempotencyKey == key {
			return a, nil
		}
	}
	return nil, appointmentRepo.ErrAppointmentNotFound
}

func (m *memAppointmentRepo) GetByProfessionalWithFilter(_ context.Context, filter domain.ProfessionalAppointmentsFilter) ([]*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Appointment
	for _, a := range m.items {
		if a.ProfessionalID != filter.ProfessionalID {
			continue
		}
		if filter.From != nil && a.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !a.StartsAt.Before(*filter.To) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

type fakeScheduleRepo struct {
	windows []domain.AvailabilityWindow
}

func (f *fakeScheduleRepo) ListByProfessional(_ context.Context, _ int64, _ bool) ([]domain.AvailabilityWindow, error) {
	return f.windows, nil
}

type fakeServiceRepo struct {
	service *domain.Service
	err     error
}

func (f *fakeServiceRepo) GetByID(_ context.Context, _ int64) (*domain.Service, error) {
	return f.service, f.err
}

type fakeProfileClient struct {
	users map[int64]*profileservice.User
}

func (f *fakeProfileClient) GetUser(_ context.Context, userID int64) (*profileservice.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, profileservice.ErrUserNotFound
	}
	return user, nil
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

// serialTxManager выполняет транзакции строго по одной, как serializable isolation
type serialTxManager struct {
	mu sync.Mutex
}

func (m *serialTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// -- Fixture --

var testLoc = time.FixedZone("MSK", 3*60*60)

// Понедельник 2025-06-02, 10:00 по времени клиники
var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, testLoc)

// Вторник, следующий день
var testDate = time.Date(2025, 6, 3, 0, 0, 0, 0, testLoc)

type fixture struct {
	uc     *UseCase
	repo   *memAppointmentRepo
	cache  *fakeSlotCache
	notify *fakeNotifyClient
}

func newFixture() *fixture {
	repo := newMemAppointmentRepo()
	cache := &fakeSlotCache{}
	notify := &fakeNotifyClient{}

	schedule := &fakeScheduleRepo{windows: []domain.AvailabilityWindow{{
		ID: 1, ProfessionalID: 10, Weekday: time.Tuesday,
		StartTime: "09:00", EndTime: "13:00", Active: true,
	}}}
	services := &fakeServiceRepo{service: &domain.Service{
		ID: 5, Title: "Консультация", Price: 1500, DurationMinutes: 30, Active: true,
	}}
	profiles := &fakeProfileClient{users: map[int64]*profileservice.User{
		1:  {ID: 1, Role: domain.RolePatient, Active: true},
		10: {ID: 10, Role: domain.RoleProfessional, Active: true},
	}}

	uc := NewUseCase(repo, schedule, services, profiles, notify, cache, &serialTxManager{},
		testLoc, 60, 90, noopLogger{})
	uc.timeProvider = fixedTime{t: testNow}

	return &fixture{uc: uc, repo: repo, cache: cache, notify: notify}
}

func validRequest() *Request {
	return &Request{
		PatientID:      1,
		ProfessionalID: 10,
		ServiceID:      5,
		Date:           testDate,
		StartTime:      "10:00",
	}
}

// -- Tests --

func TestExecute_CreatesPendingAppointment(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), resp.Status)
	assert.Equal(t, types.TimeString("10:00"), resp.StartTime)
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, "Консультация", resp.ServiceName)
	assert.Equal(t, 1500.0, resp.ServicePrice)

	// Интервал хранится в UTC: 10:00 MSK = 07:00 UTC
	assert.Equal(t, time.Date(2025, 6, 3, 7, 0, 0, 0, time.UTC), resp.StartsAt.UTC())
	assert.Equal(t, time.Date(2025, 6, 3, 7, 30, 0, 0, time.UTC), resp.EndsAt.UTC())

	// Кеш слотов на день записи инвалидирован
	require.Len(t, f.cache.invalidated, 1)
	assert.Equal(t, "2025-06-03", f.cache.invalidated[0])
}

func TestExecute_TakenSlotRejected(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.uc.Execute(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestExecute_AdjacentSlotsDoNotConflict(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	next := validRequest()
	next.StartTime = "10:30"
	_, err = f.uc.Execute(context.Background(), next)
	assert.NoError(t, err)
}

func TestExecute_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	f.repo.mu.Lock()
	f.repo.items[0].Status = domain.StatusCancelledByPatient
	f.repo.mu.Unlock()

	_, err = f.uc.Execute(context.Background(), validRequest())
	assert.NoError(t, err)
}

func TestExecute_IdempotencyKeyReturnsExisting(t *testing.T) {
	f := newFixture()
	key := "8f14e45f-ceea-467f-a8cb-9f32c1654321"

	req := validRequest()
	req.IdempotencyKey = &key
	first, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	// Повтор с тем же ключом не создает вторую запись
	retry := validRequest()
	retry.IdempotencyKey = &key
	second, err := f.uc.Execute(context.Background(), retry)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	f.repo.mu.Lock()
	assert.Len(t, f.repo.items, 1)
	f.repo.mu.Unlock()
}

func TestExecute_OutsideScheduleRejected(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.StartTime = "14:00"
	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrOutsideSchedule)

	// Слот, вылезающий за конец окна 13:00, тоже не подходит
	req = validRequest()
	req.StartTime = "12:45"
	_, err = f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrOutsideSchedule)
}

func TestExecute_BookingNoticeEnforced(t *testing.T) {
	f := newFixture()
	// Окно во вторник, но запрос на сегодня-понедельник к окну не относится,
	// поэтому дополняем расписание окном на понедельник
	f.uc.scheduleRepo = &fakeScheduleRepo{windows: []domain.AvailabilityWindow{{
		ID: 2, ProfessionalID: 10, Weekday: time.Monday,
		StartTime: "09:00", EndTime: "13:00", Active: true,
	}}}

	// now = 10:00, notice = 60 минут: слот 10:30 сегодня уже недоступен
	req := validRequest()
	req.Date = time.Date(2025, 6, 2, 0, 0, 0, 0, testLoc)
	req.StartTime = "10:30"
	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrTooLateToBook)

	// А 11:30 еще можно
	req.StartTime = "11:30"
	_, err = f.uc.Execute(context.Background(), req)
	assert.NoError(t, err)
}

func TestExecute_UnknownPatientRejected(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.PatientID = 999
	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestExecute_ProfessionalRoleRequired(t *testing.T) {
	f := newFixture()

	// Пациент в роли специалиста не принимает записи
	req := validRequest()
	req.ProfessionalID = 1
	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
}

func TestExecute_InvalidIdempotencyKeyRejected(t *testing.T) {
	f := newFixture()
	key := "not-a-uuid"

	req := validRequest()
	req.IdempotencyKey = &key
	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExecute_ConcurrentBookingOneWinner(t *testing.T) {
	f := newFixture()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Execute(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, ErrSlotNotAvailable)
		}
	}
	assert.Equal(t, 1, success, "ровно один из конкурентных запросов должен получить слот")

	f.repo.mu.Lock()
	assert.Len(t, f.repo.items, 1)
	f.repo.mu.Unlock()
}

func TestExecute_NegativeOffsetTimezoneBooksRequestedDay(t *testing.T) {
	// Дата из API парсится как полночь UTC. Для клиники западнее UTC запись
	// должна лечь на запрошенный календарный день, а не на предыдущий.
	westLoc := time.FixedZone("UTC-5", -5*60*60)

	repo := newMemAppointmentRepo()
	cache := &fakeSlotCache{}
	schedule := &fakeScheduleRepo{windows: []domain.AvailabilityWindow{{
		ID: 1, ProfessionalID: 10, Weekday: time.Thursday,
		StartTime: "09:00", EndTime: "13:00", Active: true,
	}}}
	services := &fakeServiceRepo{service: &domain.Service{
		ID: 5, Title: "Консультация", Price: 1500, DurationMinutes: 30, Active: true,
	}}
	profiles := &fakeProfileClient{users: map[int64]*profileservice.User{
		1:  {ID: 1, Role: domain.RolePatient, Active: true},
		10: {ID: 10, Role: domain.RoleProfessional, Active: true},
	}}

	uc := NewUseCase(repo, schedule, services, profiles, &fakeNotifyClient{}, cache, &serialTxManager{},
		westLoc, 60, 90, noopLogger{})
	uc.timeProvider = fixedTime{t: time.Date(2026, 3, 9, 10, 0, 0, 0, westLoc)}

	req := validRequest()
	// Четверг 2026-03-12, полночь UTC
	req.Date = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	req.StartTime = "10:00"

	resp, err := uc.Execute(context.Background(), req)

	require.NoError(t, err)
	// 10:00 UTC-5 четверга = 15:00 UTC того же календарного дня
	assert.Equal(t, time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC), resp.StartsAt.UTC())
	require.Len(t, cache.invalidated, 1)
	assert.Equal(t, "2026-03-12", cache.invalidated[0])
}

func TestExecute_NotesOptional(t *testing.T) {
	f := newFixture()

	// Запрос без заметок валиден, в ответе заметок нет
	resp, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Nil(t, resp.Notes)

	// С заметками - сохраняются как есть
	req := validRequest()
	req.StartTime = "11:00"
	req.Notes = ptr.Ptr("прийти за 10 минут")
	resp, err = f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "прийти за 10 минут", *resp.Notes)
}
