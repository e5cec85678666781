package get_available_slots

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	UserID         int64     // ID пользователя (для логирования, не влияет на результат)
	ProfessionalID int64     // ID специалиста
	ServiceID      int64     // ID услуги
	Date           time.Time // Дата для получения слотов (без времени)
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date           time.Time     // Дата, на которую запрашивались слоты
	ProfessionalID int64         // ID специалиста
	ServiceID      int64         // ID услуги
	Slots          []domain.Slot // Список доступных слотов, отсортированный по времени начала
}
