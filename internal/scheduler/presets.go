package scheduler

import (
	"fmt"
	"slices"
)

type Preset struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	pattern string
}

var presets = []Preset{
	{Key: "daily", Label: "Daily", pattern: "0 %d * * *"},
	{Key: "weekdays", Label: "Weekdays", pattern: "0 %d * * 1-5"},
	{Key: "weekly_monday", Label: "Weekly Monday", pattern: "0 %d * * 1"},
	{Key: "weekly_friday", Label: "Weekly Friday", pattern: "0 %d * * 5"},
	{Key: "monthly", Label: "Monthly", pattern: "0 %d 1 * *"},
}

func Presets() []Preset {
	return slices.Clone(presets)
}

// PresetCron renders the cron rule for preset key firing at hour:00.
func PresetCron(key string, hour int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("preset hour %d out of range", hour)
	}
	for _, p := range presets {
		if p.Key == key {
			return fmt.Sprintf(p.pattern, hour), nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", key)
}
