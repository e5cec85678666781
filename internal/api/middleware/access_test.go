package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

func TestCanAccess(t *testing.T) {
	cases := []struct {
		role       domain.Role
		capability Capability
		want       bool
	}{
		{domain.RolePatient, CapBookAppointments, true},
		{domain.RolePatient, CapViewOwnAppointments, true},
		{domain.RolePatient, CapManageAppointments, false},
		{domain.RolePatient, CapManageSchedule, false},
		{domain.RolePatient, CapManageCatalog, false},

		{domain.RoleProfessional, CapBookAppointments, true},
		{domain.RoleProfessional, CapViewOwnAppointments, true},
		{domain.RoleProfessional, CapManageAppointments, true},
		{domain.RoleProfessional, CapManageSchedule, true},
		{domain.RoleProfessional, CapManageCatalog, false},

		{domain.RoleAdmin, CapBookAppointments, true},
		{domain.RoleAdmin, CapViewOwnAppointments, true},
		{domain.RoleAdmin, CapManageAppointments, true},
		{domain.RoleAdmin, CapManageSchedule, true},
		{domain.RoleAdmin, CapManageCatalog, true},

		// Неизвестная роль не имеет ничего
		{domain.Role("ghost"), CapBookAppointments, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanAccess(tc.role, tc.capability),
			"role=%s capability=%s", tc.role, tc.capability)
	}
}

func TestRequireCapability(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed", func(t *testing.T) {
		handler := RequireCapability(CapManageCatalog, noopLogger{})(next)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", nil)
		req = req.WithContext(withActor(req.Context(), domain.Actor{UserID: 99, Role: domain.RoleAdmin}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		handler := RequireCapability(CapManageCatalog, noopLogger{})(next)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", nil)
		req = req.WithContext(withActor(req.Context(), domain.Actor{UserID: 1, Role: domain.RolePatient}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no actor in context", func(t *testing.T) {
		handler := RequireCapability(CapManageCatalog, noopLogger{})(next)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/services", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
