package domain

// Role роль пользователя платформы
// Источник ролей - ProfileService, сюда роль попадает из заголовков gateway
type Role string

const (
	RolePatient      Role = "patient"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleProfessional, RoleAdmin:
		return true
	}
	return false
}

// Actor аутентифицированный инициатор запроса
type Actor struct {
	UserID int64
	Role   Role
}

// IsAdmin возвращает true для администраторов
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsProfessional возвращает true для специалистов
func (a Actor) IsProfessional() bool {
	return a.Role == RoleProfessional
}
