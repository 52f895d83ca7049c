package entity

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// EventDate is a calendar date serialized as DD-MM-YYYY, the format the
// storefront and event documents use everywhere.
type EventDate struct {
	time.Time
}

const eventDateLayout = "02-01-2006"

func ParseEventDate(s string) (EventDate, error) {
	t, err := time.Parse(eventDateLayout, s)
	if err != nil {
		return EventDate{}, err
	}
	return EventDate{Time: t}, nil
}

func (d *EventDate) UnmarshalJSON(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("invalid event date %q", string(b))
	}
	s := string(b[1 : len(b)-1]) // Remove quotes
	t, err := time.Parse(eventDateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d EventDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(eventDateLayout) + `"`), nil
}

func (d EventDate) String() string {
	return d.Format(eventDateLayout)
}

func (d EventDate) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *EventDate) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		d.Time = v
	case []byte:
		t, err := time.Parse("2006-01-02T15:04:05Z07:00", string(v))
		if err != nil {
			t, err = time.Parse("2006-01-02", string(v))
			if err != nil {
				return err
			}
		}
		d.Time = t
	default:
		return fmt.Errorf("cannot scan type %T into EventDate", value)
	}
	return nil
}

// Past reports whether the date is strictly before today (local calendar day).
func (d EventDate) Past(now time.Time) bool {
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	dy, dm, dd := d.Date()
	date := time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())
	return date.Before(today)
}
