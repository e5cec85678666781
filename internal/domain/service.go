package domain

import "time"

// Service represents a bookable service in the catalog
// DurationMinutes определяет длину слота при записи на эту услугу
type Service struct {
	ID              int64
	Title           string
	Description     *string
	Price           float64
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsBookable returns true if appointments can be created for the service
func (s *Service) IsBookable() bool {
	return s.Active && s.DurationMinutes > 0
}
