package models

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	serviceRepo "github.com/m04kA/Clinic-BookingService/internal/infra/storage/service"
)

// Request модели

// CreateServiceRequest запрос на создание услуги
type CreateServiceRequest struct {
	Actor           domain.Actor `json:"-"`
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	Price           float64      `json:"price"`
	DurationMinutes int          `json:"durationMinutes"`
}

// ToDomainService конвертирует request в domain модель
func (r *CreateServiceRequest) ToDomainService() *domain.Service {
	return &domain.Service{
		Title:           r.Title,
		Description:     r.Description,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
		Active:          true,
	}
}

// UpdateServiceRequest запрос на частичное обновление услуги
type UpdateServiceRequest struct {
	Actor           domain.Actor `json:"-"`
	Title           *string      `json:"title,omitempty"`
	Description     *string      `json:"description,omitempty"`
	Price           *float64     `json:"price,omitempty"`
	DurationMinutes *int         `json:"durationMinutes,omitempty"`
	Active          *bool        `json:"active,omitempty"`
}

// ToRepoUpdate конвертирует request в частичное обновление репозитория
func (r *UpdateServiceRequest) ToRepoUpdate() serviceRepo.ServiceUpdate {
	return serviceRepo.ServiceUpdate{
		Title:           r.Title,
		Description:     r.Description,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
		Active:          r.Active,
	}
}

// IsEmpty возвращает true, когда обновлять нечего
func (r *UpdateServiceRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Price == nil &&
		r.DurationMinutes == nil && r.Active == nil
}

// Response модели

// ServiceResponse ответ с данными услуги
type ServiceResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"durationMinutes"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ServiceListResponse ответ со списком услуг
type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
}

// Методы конвертации

// FromDomainService конвертирует domain модель в DTO
func FromDomainService(s *domain.Service) *ServiceResponse {
	if s == nil {
		return nil
	}

	return &ServiceResponse{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Active:          s.Active,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// FromDomainServiceList конвертирует список domain моделей в DTO
func FromDomainServiceList(services []*domain.Service) *ServiceListResponse {
	if services == nil {
		return &ServiceListResponse{
			Services: []ServiceResponse{},
		}
	}

	resp := &ServiceListResponse{
		Services: make([]ServiceResponse, len(services)),
	}

	for i, service := range services {
		if serviceResp := FromDomainService(service); serviceResp != nil {
			resp.Services[i] = *serviceResp
		}
	}

	return resp
}
