package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // store timezone must resolve on minimal images

	"github.com/itsneelabh/sushichat/core"
)

// DefaultTimezone is used when the seed does not name one.
const DefaultTimezone = "America/Argentina/Buenos_Aires"

var (
	phonePattern = regexp.MustCompile(`^\+54\s?[0-9]{2,3}\s?[0-9]{4}-?[0-9]{4}$`)
	timePattern  = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
)

// ValidatePhone reports whether s is an Argentine phone number (+54 11 1234-5678).
func ValidatePhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// TimeOfDay is a wall-clock time as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "H:MM" or "HH:MM" in 24h format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, core.ErrInvalidConfiguration)
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*60 + minute), nil
}

// String renders "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// DayHours is the opening window for a group of days.
// Close before Open means the shift runs past midnight.
type DayHours struct {
	Label string    `json:"label"`
	Open  TimeOfDay `json:"open"`
	Close TimeOfDay `json:"close"`
}

// Overnight reports whether the window crosses midnight.
func (d DayHours) Overnight() bool {
	return d.Close < d.Open
}

// WeeklyHours splits the week into weekdays (Mon-Fri) and weekends (Sat-Sun).
type WeeklyHours struct {
	Weekdays DayHours `json:"weekdays"`
	Weekends DayHours `json:"weekends"`
}

// For returns the window that applies to day.
func (w WeeklyHours) For(day time.Weekday) DayHours {
	if day == time.Saturday || day == time.Sunday {
		return w.Weekends
	}
	return w.Weekdays
}

// StoreInfo describes the restaurant. It is a read-only singleton at request time.
type StoreInfo struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Phone    string      `json:"phone"`
	Email    string      `json:"email,omitempty"`
	Hours    WeeklyHours `json:"hours"`
	Timezone string      `json:"timezone"`

	loc *time.Location
}

// NewStoreInfo validates the phone and resolves the timezone.
func NewStoreInfo(info StoreInfo) (StoreInfo, error) {
	if strings.TrimSpace(info.Address) == "" {
		return StoreInfo{}, fmt.Errorf("store address is required: %w", core.ErrMissingConfiguration)
	}
	if info.Phone != "" && !ValidatePhone(info.Phone) {
		return StoreInfo{}, fmt.Errorf("invalid store phone %q: %w", info.Phone, core.ErrInvalidConfiguration)
	}
	if info.Timezone == "" {
		info.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(info.Timezone)
	if err != nil {
		return StoreInfo{}, fmt.Errorf("invalid timezone %q: %w", info.Timezone, core.ErrInvalidConfiguration)
	}
	info.loc = loc
	return info, nil
}

// GetHours returns the weekly schedule.
func (s StoreInfo) GetHours() WeeklyHours { return s.Hours }

// GetAddress returns the street address.
func (s StoreInfo) GetAddress() string { return s.Address }

// GetPhone returns the contact phone.
func (s StoreInfo) GetPhone() string { return s.Phone }

// Location returns the store's timezone, UTC if unresolved.
func (s StoreInfo) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// IsOpenNow reports whether the store is open at t (converted to store time).
// A window is open when open <= now < close. For overnight windows the
// after-midnight part belongs to the previous day's schedule.
func (s StoreInfo) IsOpenNow(t time.Time) bool {
	local := t.In(s.Location())
	now := TimeOfDay(local.Hour()*60 + local.Minute())

	today := s.Hours.For(local.Weekday())
	switch {
	case today.Open == today.Close:
	case today.Overnight():
		if now >= today.Open {
			return true
		}
	default:
		if today.Open <= now && now < today.Close {
			return true
		}
	}

	yesterday := s.Hours.For((local.Weekday() + 6) % 7)
	return yesterday.Overnight() && now < yesterday.Close
}
