package profileservice

import (
	"github.com/m04kA/Clinic-BookingService/internal/domain"
)

// User модель пользователя из ProfileService
type User struct {
	ID       int64       `json:"id"`
	Role     domain.Role `json:"role"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Active   bool        `json:"active"`
}

// IsProfessional возвращает true для специалистов
func (u *User) IsProfessional() bool {
	return u.Role == domain.RoleProfessional
}

// IsAdmin возвращает true для администраторов
func (u *User) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// ErrorResponse модель ошибки от ProfileService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
