package middleware

import (
	"net/http"

	"github.com/m04kA/Clinic-BookingService/internal/api/handlers"
	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

const msgForbidden = "доступ запрещен"

// Capability именованная возможность API
// Права на конкретные объекты (своя запись, свое расписание) проверяют сервисы,
// здесь отсекаются целые группы маршрутов по роли.
type Capability string

const (
	CapBookAppointments    Capability = "book_appointments"     // создание, отмена и перенос своих записей
	CapViewOwnAppointments Capability = "view_own_appointments" // просмотр своих записей
	CapManageAppointments  Capability = "manage_appointments"   // смена статусов, записи специалиста
	CapManageSchedule      Capability = "manage_schedule"       // редактирование расписания
	CapManageCatalog       Capability = "manage_catalog"        // редактирование каталога услуг
)

// accessTable единственное место, где роль отображается на возможности API
var accessTable = map[domain.Role]map[Capability]bool{
	domain.RolePatient: {
		CapBookAppointments:    true,
		CapViewOwnAppointments: true,
	},
	domain.RoleProfessional: {
		CapBookAppointments:    true,
		CapViewOwnAppointments: true,
		CapManageAppointments:  true,
		CapManageSchedule:      true,
	},
	domain.RoleAdmin: {
		CapBookAppointments:    true,
		CapViewOwnAppointments: true,
		CapManageAppointments:  true,
		CapManageSchedule:      true,
		CapManageCatalog:       true,
	},
}

// CanAccess возвращает true, если роль имеет указанную возможность
func CanAccess(role domain.Role, capability Capability) bool {
	return accessTable[role][capability]
}

// RequireCapability пропускает запрос только для ролей с указанной возможностью
// Должен стоять после Auth
func RequireCapability(capability Capability, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				logger.Warn("access: no actor in context, path=%s", r.URL.Path)
				handlers.RespondUnauthorized(w, msgMissingAuth)
				return
			}

			if !CanAccess(actor.Role, capability) {
				logger.Warn("access: role=%s denied capability=%s, user=%d, path=%s",
					actor.Role, capability, actor.UserID, r.URL.Path)
				handlers.RespondForbidden(w, msgForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
