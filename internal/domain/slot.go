package domain

import (
	"sort"
	"time"

	"github.com/m04kA/Clinic-BookingService/pkg/types"
)

// LocalDay возвращает полночь календарного дня даты date в локации loc.
// Дата из API парсится как полночь UTC, поэтому берем компоненты год/месяц/день
// как есть: конвертация инстанта через In(loc) в западных таймзонах
// сдвигает дату на предыдущий день.
func LocalDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// Interval полуоткрытый интервал времени [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps returns true if the intervals actually intersect.
// Граничащие интервалы (one.End == other.Start) пересечением НЕ считаются.
//
// Примеры:
// - [11:30, 12:00) и [11:20, 11:40) → пересекаются (11:30-11:40)
// - [11:30, 12:00) и [11:00, 11:30) → не пересекаются (граничат)
// - [11:30, 12:00) и [12:00, 12:30) → не пересекаются (граничат)
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// OverlapsAny returns true if the interval intersects any of the given intervals
func (i Interval) OverlapsAny(intervals []Interval) bool {
	for _, other := range intervals {
		if i.Overlaps(other) {
			return true
		}
	}
	return false
}

// Slot represents a candidate bookable interval of fixed duration
type Slot struct {
	// StartsAt момент начала слота (UTC)
	StartsAt time.Time
	// StartTime время начала в таймзоне клиники, для отображения
	StartTime       types.TimeString
	DurationMinutes int
}

// GenerateSlots вычисляет свободные слоты на день date для записи длиной durationMin.
//
// Чистая функция: одинаковые входы дают одинаковый результат. Кандидат попадает
// в результат, только если его интервал:
//   - целиком помещается в активное окно расписания на день недели даты;
//   - не пересекается ни с одним занятым интервалом (полуоткрытая семантика);
//   - начинается строго позже now.
//
// Кандидаты идут с шагом durationMin от начала окна. Окна короче одного слота
// и окна с start >= end дают пустой результат без ошибки.
func GenerateSlots(
	windows []AvailabilityWindow,
	booked []Interval,
	durationMin int,
	date time.Time,
	now time.Time,
	loc *time.Location,
) []Slot {
	slots := make([]Slot, 0)

	if durationMin <= 0 {
		return slots
	}

	day := LocalDay(date, loc)
	weekday := day.Weekday()
	duration := time.Duration(durationMin) * time.Minute
	seen := make(map[int64]struct{})

	for _, window := range windows {
		if !window.IsUsable() || window.Weekday != weekday {
			continue
		}

		windowStart, err := window.StartTime.OnDate(day, loc)
		if err != nil {
			continue
		}
		windowEnd, err := window.EndTime.OnDate(day, loc)
		if err != nil {
			continue
		}

		for cur := windowStart; !cur.Add(duration).After(windowEnd); cur = cur.Add(duration) {
			candidate := Interval{Start: cur, End: cur.Add(duration)}

			// Слот должен начинаться строго в будущем
			if !candidate.Start.After(now) {
				continue
			}

			if candidate.OverlapsAny(booked) {
				continue
			}

			// Пересекающиеся окна могут дать один и тот же кандидат дважды
			key := candidate.Start.Unix()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			slots = append(slots, Slot{
				StartsAt:        candidate.Start.UTC(),
				StartTime:       types.NewTimeString(candidate.Start.In(loc)),
				DurationMinutes: durationMin,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartsAt.Before(slots[j].StartsAt)
	})

	return slots
}

// ActiveIntervals возвращает занятые интервалы активных записей
func ActiveIntervals(appointments []*Appointment) []Interval {
	intervals := make([]Interval, 0, len(appointments))
	for _, a := range appointments {
		if a.IsActive() {
			intervals = append(intervals, a.Interval())
		}
	}
	return intervals
}
