package store

import (
	"context"
	"strconv"
)

// Setting keys. Settings are deployment-wide, not per group.
const (
	KeyBroadcastHour     = "broadcast_hour"
	KeyBroadcastMinute   = "broadcast_minute"
	KeyAllowStart        = "allow_start"
	KeyAllowEnd          = "allow_end"
	KeyActivityThreshold = "activity_threshold"
	KeyIntervalHours     = "interval_hours"
	KeyReminderHour      = "reminder_hour"
	KeyReminderMinute    = "reminder_minute"
	KeyReminderEnabled   = "reminder_enabled"
)

// settingDefaults are seeded once at startup; later writes overwrite.
var settingDefaults = map[string]string{
	KeyBroadcastHour:     "7",
	KeyBroadcastMinute:   "0",
	KeyAllowStart:        "7",
	KeyAllowEnd:          "22",
	KeyActivityThreshold: "6",
	KeyIntervalHours:     "6",
	KeyReminderHour:      "12",
	KeyReminderMinute:    "0",
	KeyReminderEnabled:   "1",
}

// BroadcastSettings is the scheduler's view of all settings, read afresh
// on every trigger decision so settings writes take effect immediately.
type BroadcastSettings struct {
	BroadcastHour   int
	BroadcastMinute int
	AllowStart      int
	AllowEnd        int
	Threshold       int
	IntervalHours   float64
	ReminderHour    int
	ReminderMinute  int
	ReminderEnabled bool
}

// BroadcastSettings loads every setting, falling back to defaults for
// keys that are missing or unparsable.
func (r *SQLiteRepo) BroadcastSettings(ctx context.Context) (BroadcastSettings, error) {
	get := func(key string) (string, error) { return r.Setting(ctx, key) }

	var s BroadcastSettings
	var err error
	if s.BroadcastHour, err = settingInt(get, KeyBroadcastHour); err != nil {
		return s, err
	}
	if s.BroadcastMinute, err = settingInt(get, KeyBroadcastMinute); err != nil {
		return s, err
	}
	if s.AllowStart, err = settingInt(get, KeyAllowStart); err != nil {
		return s, err
	}
	if s.AllowEnd, err = settingInt(get, KeyAllowEnd); err != nil {
		return s, err
	}
	if s.Threshold, err = settingInt(get, KeyActivityThreshold); err != nil {
		return s, err
	}
	if s.IntervalHours, err = settingFloat(get, KeyIntervalHours); err != nil {
		return s, err
	}
	if s.ReminderHour, err = settingInt(get, KeyReminderHour); err != nil {
		return s, err
	}
	if s.ReminderMinute, err = settingInt(get, KeyReminderMinute); err != nil {
		return s, err
	}
	enabled, err := settingInt(get, KeyReminderEnabled)
	if err != nil {
		return s, err
	}
	s.ReminderEnabled = enabled != 0
	return s, nil
}

func settingInt(get func(string) (string, error), key string) (int, error) {
	raw, err := get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		v, _ = strconv.Atoi(settingDefaults[key])
	}
	return v, nil
}

func settingFloat(get func(string) (string, error), key string) (float64, error) {
	raw, err := get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v, _ = strconv.ParseFloat(settingDefaults[key], 64)
	}
	return v, nil
}
