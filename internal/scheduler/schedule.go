package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := scheduleParser.Parse(schedule)
	return err
}

// NextRunTime returns the first activation of the schedule after now.
func NextRunTime(schedule string, now time.Time) (time.Time, error) {
	sched, err := scheduleParser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

// Describe returns a human-readable description of a cron schedule
func Describe(schedule string) string {
	switch schedule {
	case "* * * * *":
		return "Every minute"
	case "*/5 * * * *":
		return "Every 5 minutes"
	case "*/10 * * * *":
		return "Every 10 minutes"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "0 * * * *":
		return "Every hour at :00"
	case "0 3 * * *":
		return "Daily at 03:00"
	default:
		return "Custom schedule: " + schedule
	}
}
