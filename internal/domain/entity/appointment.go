package entity

import (
	"strings"
	"time"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

const (
	appointmentDateLayout = "2006-01-02"
	appointmentTimeLayout = "15:04"
)

// Appointment - дата и время визита специалиста.
type Appointment struct {
	Date     string
	Time     string
	Location *time.Location
}

// ParseAppointment принимает дату как YYYY-MM-DD или RFC3339 (берётся только дата) и время HH:MM.
func ParseAppointment(date, clock string, loc *time.Location) (Appointment, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return Appointment{}, apperror.Validation("дата и время визита обязательны")
	}
	if loc == nil {
		loc = time.Local
	}

	day, err := time.ParseInLocation(appointmentDateLayout, date, loc)
	if err != nil {
		ts, rfcErr := time.Parse(time.RFC3339, date)
		if rfcErr != nil {
			return Appointment{}, apperror.Validation("некорректная дата визита")
		}
		day = ts.In(loc)
	}

	if _, err := time.Parse(appointmentTimeLayout, clock); err != nil {
		return Appointment{}, apperror.Validation("время визита должно быть в формате HH:MM")
	}

	return Appointment{
		Date:     day.Format(appointmentDateLayout),
		Time:     clock,
		Location: loc,
	}, nil
}

// Instant возвращает момент визита в часовом поясе записи.
func (a Appointment) Instant() time.Time {
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}
	at, err := time.ParseInLocation(appointmentDateLayout+" "+appointmentTimeLayout, a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return at
}
