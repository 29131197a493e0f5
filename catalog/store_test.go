package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func testStore(t *testing.T, weekdays, weekends DayHours) StoreInfo {
	t.Helper()
	info, err := NewStoreInfo(StoreInfo{
		Name:    "SushiBot",
		Address: "Av. Corrientes 1234, Buenos Aires, Argentina",
		Phone:   "+54 11 1234-5678",
		Hours:   WeeklyHours{Weekdays: weekdays, Weekends: weekends},
	})
	require.NoError(t, err)
	return info
}

func TestIsOpenNow(t *testing.T) {
	store := testStore(t,
		DayHours{Label: "Lunes a Viernes", Open: mustTime(t, "11:00"), Close: mustTime(t, "22:00")},
		DayHours{Label: "Sábados y Domingos", Open: mustTime(t, "12:00"), Close: mustTime(t, "23:00")},
	)
	loc := store.Location()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"tuesday afternoon", time.Date(2024, 5, 14, 15, 0, 0, 0, loc), true},
		{"tuesday late", time.Date(2024, 5, 14, 23, 0, 0, 0, loc), false},
		{"tuesday at close", time.Date(2024, 5, 14, 22, 0, 0, 0, loc), false},
		{"tuesday at open", time.Date(2024, 5, 14, 11, 0, 0, 0, loc), true},
		{"saturday 22:30", time.Date(2024, 5, 18, 22, 30, 0, 0, loc), true},
		{"sunday morning", time.Date(2024, 5, 19, 11, 30, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.IsOpenNow(tt.at))
		})
	}
}

func TestIsOpenNowConvertsToStoreTimezone(t *testing.T) {
	store := testStore(t,
		DayHours{Open: mustTime(t, "11:00"), Close: mustTime(t, "22:00")},
		DayHours{Open: mustTime(t, "12:00"), Close: mustTime(t, "23:00")},
	)
	// 18:00 UTC on a Tuesday is 15:00 in Buenos Aires (UTC-3)
	assert.True(t, store.IsOpenNow(time.Date(2024, 5, 14, 18, 0, 0, 0, time.UTC)))
	// 02:00 UTC Wednesday is 23:00 Tuesday locally
	assert.False(t, store.IsOpenNow(time.Date(2024, 5, 15, 2, 0, 0, 0, time.UTC)))
}

func TestIsOpenNowOvernight(t *testing.T) {
	store := testStore(t,
		DayHours{Open: mustTime(t, "19:00"), Close: mustTime(t, "02:00")},
		DayHours{Open: mustTime(t, "00:00"), Close: mustTime(t, "00:00")},
	)
	loc := store.Location()

	// Friday night shift spills into Saturday
	assert.True(t, store.IsOpenNow(time.Date(2024, 5, 17, 23, 30, 0, 0, loc)))
	assert.True(t, store.IsOpenNow(time.Date(2024, 5, 18, 1, 30, 0, 0, loc)))
	assert.False(t, store.IsOpenNow(time.Date(2024, 5, 18, 2, 0, 0, 0, loc)))
	// weekends closed all day, and Sunday has no spill-over into Monday
	assert.False(t, store.IsOpenNow(time.Date(2024, 5, 19, 20, 0, 0, 0, loc)))
	assert.False(t, store.IsOpenNow(time.Date(2024, 5, 20, 1, 0, 0, 0, loc)))
	// Monday shift starts at 19:00
	assert.False(t, store.IsOpenNow(time.Date(2024, 5, 20, 18, 59, 0, 0, loc)))
	assert.True(t, store.IsOpenNow(time.Date(2024, 5, 20, 19, 0, 0, 0, loc)))
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+54 11 1234-5678", "+541112345678", "+54 221 1234-5678"}
	invalid := []string{"1234-5678", "+1 415 555 0100", "", "+54 11 12345-678"}
	for _, p := range valid {
		assert.True(t, ValidatePhone(p), p)
	}
	for _, p := range invalid {
		assert.False(t, ValidatePhone(p), p)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("9:05")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*60+5), v)
	assert.Equal(t, "09:05", v.String())

	for _, bad := range []string{"24:00", "12:60", "noon", ""} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewStoreInfoValidation(t *testing.T) {
	_, err := NewStoreInfo(StoreInfo{Address: "x", Phone: "123"})
	assert.Error(t, err)

	_, err = NewStoreInfo(StoreInfo{Address: "x", Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	_, err = NewStoreInfo(StoreInfo{})
	assert.Error(t, err)

	info, err := NewStoreInfo(StoreInfo{Address: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, info.Timezone)
}
