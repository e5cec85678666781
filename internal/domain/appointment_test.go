package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelledByPatient, true},
		{StatusPending, StatusCancelledByProfessional, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusNoShow, false},

		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCancelledByPatient, true},
		{StatusConfirmed, StatusCancelledByProfessional, true},
		{StatusConfirmed, StatusPending, false},

		// Терминальные статусы не допускают переходов
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusNoShow, StatusConfirmed, false},
		{StatusCancelledByPatient, StatusConfirmed, false},
		{StatusCancelledByProfessional, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" -> "+string(tt.to), func(t *testing.T) {
			a := &Appointment{Status: tt.from}
			assert.Equal(t, tt.allowed, a.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())
	assert.True(t, StatusCancelledByPatient.IsTerminal())
	assert.True(t, StatusCancelledByProfessional.IsTerminal())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range append(ActiveStatuses, InactiveStatuses...) {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	assert.False(t, AppointmentStatus("in_progress").IsValid())
	assert.False(t, AppointmentStatus("").IsValid())
}

func TestAppointmentIsActive(t *testing.T) {
	active := []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted}
	for _, s := range active {
		a := &Appointment{Status: s}
		assert.True(t, a.IsActive(), "status %s", s)
	}

	for _, s := range InactiveStatuses {
		a := &Appointment{Status: s}
		assert.False(t, a.IsActive(), "status %s", s)
	}
}

func TestAppointmentCanBeCancelled(t *testing.T) {
	assert.True(t, (&Appointment{Status: StatusPending}).CanBeCancelled())
	assert.True(t, (&Appointment{Status: StatusConfirmed}).CanBeCancelled())
	assert.False(t, (&Appointment{Status: StatusCompleted}).CanBeCancelled())
	assert.False(t, (&Appointment{Status: StatusNoShow}).CanBeCancelled())
	assert.False(t, (&Appointment{Status: StatusCancelledByPatient}).CanBeCancelled())
}
