// Package cronjobs implements the user-defined cron job CRUD surface and
// scheduler loop from spec §6 ("Cron jobs (user-defined): CRUD +
// get_active_cron_jobs for startup restoration").
package cronjobs

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/robfig/cron/v3"
)

// cronParser mirrors the teacher's extended parser: standard 5-field
// expressions plus an optional leading seconds field and @-descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// ValidateExpression rejects anything gronx can't parse as a cron
// expression, used at create time so a bad schedule never reaches the
// repository.
func ValidateExpression(expr string) error {
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression: %q", expr)
	}
	return nil
}

// NextRun returns the next fire time strictly after `after`.
func NextRun(expr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression: %w", err)
	}
	return sched.Next(after), nil
}
