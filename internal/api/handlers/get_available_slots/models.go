package get_available_slots

import (
	"time"

	"github.com/m04kA/Clinic-BookingService/internal/domain"
	getSlots "github.com/m04kA/Clinic-BookingService/internal/usecase/get_available_slots"
)

// SlotResponse HTTP модель одного слота
type SlotResponse struct {
	StartTime       string `json:"startTime"` // "10:00", в таймзоне клиники
	StartsAt        string `json:"startsAt"`  // RFC 3339, UTC
	DurationMinutes int    `json:"durationMinutes"`
}

// SlotsResponse HTTP модель ответа со слотами
type SlotsResponse struct {
	Date           string         `json:"date"`
	ProfessionalID int64          `json:"professionalId"`
	ServiceID      int64          `json:"serviceId"`
	Slots          []SlotResponse `json:"slots"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getSlots.Response) *SlotsResponse {
	out := &SlotsResponse{
		Date:           resp.Date.Format(domain.DateFormat),
		ProfessionalID: resp.ProfessionalID,
		ServiceID:      resp.ServiceID,
		Slots:          make([]SlotResponse, len(resp.Slots)),
	}

	for i, slot := range resp.Slots {
		out.Slots[i] = SlotResponse{
			StartTime:       slot.StartTime.String(),
			StartsAt:        slot.StartsAt.UTC().Format(time.RFC3339),
			DurationMinutes: slot.DurationMinutes,
		}
	}

	return out
}
