package notifyservice

// EventType тип события уведомления
type EventType string

const (
	EventAppointmentCreated   EventType = "appointment_created"
	EventAppointmentCancelled EventType = "appointment_cancelled"
)

// AppointmentEvent событие о записи для NotifyService
// Сервис уведомлений сам решает, по каким каналам (email, push) доставлять
type AppointmentEvent struct {
	Type           EventType `json:"type"`
	AppointmentID  int64     `json:"appointmentId"`
	PatientID      int64     `json:"patientId"`
	PatientName    string    `json:"patientName,omitempty"`
	ProfessionalID int64     `json:"professionalId"`
	ServiceName    string    `json:"serviceName"`
	StartsAt       string    `json:"startsAt"` // RFC 3339
	Reason         *string   `json:"reason,omitempty"`
}
