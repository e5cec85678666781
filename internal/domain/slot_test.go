package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

var testLoc = time.UTC

func windowOn(weekday time.Weekday, start, end string) AvailabilityWindow {
	return AvailabilityWindow{
		ID:             1,
		ProfessionalID: 10,
		Weekday:        weekday,
		StartTime:      types.TimeString(start),
		EndTime:        types.TimeString(end),
		Active:         true,
	}
}

// день теста: среда 2025-06-11
var (
	testDate = time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	// "сейчас" задолго до тестового дня, чтобы прошлое не мешало
	longAgo = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 11, hour, min, 0, 0, time.UTC)
}

func TestGenerateSlots_EmptyWindowNoBookings(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "11:00")

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 60, testDate, longAgo, testLoc)

	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.Equal(t, "10:00", slots[1].StartTime.String())
	assert.Equal(t, 60, slots[0].DurationMinutes)
}

func TestGenerateSlots_BookingExcludesOverlappingCandidates(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "11:00")
	booked := []Interval{{Start: at(9, 30), End: at(10, 30)}}

	slots := GenerateSlots([]AvailabilityWindow{window}, booked, 60, testDate, longAgo, testLoc)

	// Бронь 09:30-10:30 пересекает оба кандидата: [09:00,10:00) и [10:00,11:00)
	assert.Empty(t, slots)
}

func TestGenerateSlots_ShortTailHasNoSlot(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "10:30")

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 60, testDate, longAgo, testLoc)

	// Хвост окна 10:00-10:30 короче слота
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
}

func TestGenerateSlots_AbuttingBookingDoesNotExclude(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "11:00")
	// Бронь заканчивается ровно в начале второго слота
	booked := []Interval{{Start: at(9, 0), End: at(10, 0)}}

	slots := GenerateSlots([]AvailabilityWindow{window}, booked, 60, testDate, longAgo, testLoc)

	require.Len(t, slots, 1)
	assert.Equal(t, "10:00", slots[0].StartTime.String())
}

func TestGenerateSlots_CandidatesNeverExceedWindow(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "12:45")

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 45, testDate, longAgo, testLoc)

	windowEnd := at(12, 45)
	for _, slot := range slots {
		end := slot.StartsAt.Add(time.Duration(slot.DurationMinutes) * time.Minute)
		assert.False(t, end.After(windowEnd), "slot %s exceeds window", slot.StartTime)
	}
}

func TestGenerateSlots_NoCandidateOverlapsBooked(t *testing.T) {
	window := windowOn(time.Wednesday, "08:00", "18:00")
	booked := []Interval{
		{Start: at(9, 10), End: at(9, 40)},
		{Start: at(12, 0), End: at(13, 0)},
		{Start: at(17, 45), End: at(18, 0)},
	}

	slots := GenerateSlots([]AvailabilityWindow{window}, booked, 30, testDate, longAgo, testLoc)

	require.NotEmpty(t, slots)
	for _, slot := range slots {
		candidate := Interval{
			Start: slot.StartsAt,
			End:   slot.StartsAt.Add(time.Duration(slot.DurationMinutes) * time.Minute),
		}
		for _, b := range booked {
			assert.False(t, candidate.Overlaps(b),
				"slot %s overlaps booking %v", slot.StartTime, b)
		}
	}
}

func TestGenerateSlots_PastSlotsSkipped(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "12:00")
	now := at(10, 0)

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 60, testDate, now, testLoc)

	// Слот 10:00 начинается не строго в будущем относительно now=10:00 - исключён
	require.Len(t, slots, 1)
	assert.Equal(t, "11:00", slots[0].StartTime.String())
	for _, slot := range slots {
		assert.True(t, slot.StartsAt.After(now))
	}
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "17:00")
	booked := []Interval{{Start: at(11, 0), End: at(11, 30)}}

	first := GenerateSlots([]AvailabilityWindow{window}, booked, 30, testDate, longAgo, testLoc)
	second := GenerateSlots([]AvailabilityWindow{window}, booked, 30, testDate, longAgo, testLoc)

	assert.Equal(t, first, second)
}

func TestGenerateSlots_WrongWeekdayGivesNothing(t *testing.T) {
	window := windowOn(time.Monday, "09:00", "17:00")

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 30, testDate, longAgo, testLoc)

	assert.Empty(t, slots)
}

func TestGenerateSlots_DegenerateWindowGivesNothing(t *testing.T) {
	window := windowOn(time.Wednesday, "17:00", "09:00")

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 30, testDate, longAgo, testLoc)

	assert.Empty(t, slots)
}

func TestGenerateSlots_InactiveWindowIgnored(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "17:00")
	window.Active = false

	slots := GenerateSlots([]AvailabilityWindow{window}, nil, 30, testDate, longAgo, testLoc)

	assert.Empty(t, slots)
}

func TestGenerateSlots_MultipleWindowsSortedMerged(t *testing.T) {
	morning := windowOn(time.Wednesday, "14:00", "16:00")
	evening := windowOn(time.Wednesday, "09:00", "11:00")

	slots := GenerateSlots([]AvailabilityWindow{morning, evening}, nil, 60, testDate, longAgo, testLoc)

	require.Len(t, slots, 4)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.Equal(t, "10:00", slots[1].StartTime.String())
	assert.Equal(t, "14:00", slots[2].StartTime.String())
	assert.Equal(t, "15:00", slots[3].StartTime.String())
}

func TestGenerateSlots_ZeroDuration(t *testing.T) {
	window := windowOn(time.Wednesday, "09:00", "17:00")

	assert.Empty(t, GenerateSlots([]AvailabilityWindow{window}, nil, 0, testDate, longAgo, testLoc))
	assert.Empty(t, GenerateSlots([]AvailabilityWindow{window}, nil, -15, testDate, longAgo, testLoc))
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: at(11, 30), End: at(12, 0)}

	tests := []struct {
		name     string
		other    Interval
		overlaps bool
	}{
		{"partial overlap from left", Interval{Start: at(11, 20), End: at(11, 40)}, true},
		{"abutting before", Interval{Start: at(11, 0), End: at(11, 30)}, false},
		{"abutting after", Interval{Start: at(12, 0), End: at(12, 30)}, false},
		{"contained", Interval{Start: at(11, 40), End: at(11, 50)}, true},
		{"containing", Interval{Start: at(11, 0), End: at(13, 0)}, true},
		{"disjoint", Interval{Start: at(15, 0), End: at(16, 0)}, false},
		{"identical", Interval{Start: at(11, 30), End: at(12, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, base.Overlaps(tt.other))
			// Пересечение симметрично
			assert.Equal(t, tt.overlaps, tt.other.Overlaps(base))
		})
	}
}

func TestActiveIntervals(t *testing.T) {
	appointments := []*Appointment{
		{Status: StatusConfirmed, StartsAt: at(9, 0), EndsAt: at(10, 0)},
		{Status: StatusCancelledByPatient, StartsAt: at(10, 0), EndsAt: at(11, 0)},
		{Status: StatusNoShow, StartsAt: at(11, 0), EndsAt: at(12, 0)},
		{Status: StatusPending, StartsAt: at(12, 0), EndsAt: at(13, 0)},
	}

	intervals := ActiveIntervals(appointments)

	require.Len(t, intervals, 2)
	assert.Equal(t, at(9, 0), intervals[0].Start)
	assert.Equal(t, at(12, 0), intervals[1].Start)
}

func TestGenerateSlots_NegativeOffsetTimezoneKeepsRequestedDay(t *testing.T) {
	// Дата из API приходит как полночь UTC. В таймзоне западнее UTC этот
	// инстант - еще предыдущий вечер, но слоты должны строиться на
	// запрошенный календарный день.
	westLoc := time.FixedZone("UTC-5", -5*60*60)
	// Четверг 2026-03-12, распарсенный как полночь UTC
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	thursday := windowOn(time.Thursday, "09:00", "11:00")
	slots := GenerateSlots([]AvailabilityWindow{thursday}, nil, 60, date, longAgo, westLoc)

	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	// 09:00 UTC-5 четверга = 14:00 UTC того же календарного дня
	assert.Equal(t, time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC), slots[0].StartsAt)
	assert.Equal(t, time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC), slots[1].StartsAt)

	// Окно среды не должно давать слотов на четверг
	wednesday := windowOn(time.Wednesday, "09:00", "11:00")
	slots = GenerateSlots([]AvailabilityWindow{wednesday}, nil, 60, date, longAgo, westLoc)
	assert.Empty(t, slots)
}

func TestLocalDay(t *testing.T) {
	westLoc := time.FixedZone("UTC-5", -5*60*60)
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	day := LocalDay(date, westLoc)

	assert.Equal(t, 2026, day.Year())
	assert.Equal(t, time.March, day.Month())
	assert.Equal(t, 12, day.Day())
	assert.Equal(t, time.Thursday, day.Weekday())
	assert.Equal(t, westLoc, day.Location())
}
