package validate

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Email reports whether email carries a usable value. The format is not
// checked; rosters accept addresses as given.
func Email(email string) bool {
	return strings.TrimSpace(email) != ""
}

// ParseCron parses a standard 5-field cron expression or @descriptor.
func ParseCron(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("cron expression is required")
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// CronExpression validates expr without keeping the schedule.
func CronExpression(expr string) error {
	_, err := ParseCron(expr)
	return err
}
