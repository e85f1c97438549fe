package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/storage"
)

// parseDate reads a YYYY-MM-DD date as local midnight.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(cli.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return t, nil
}

// parseRange turns --from/--to into inclusive bounds. The end bound covers the
// whole --to day. Both empty means no filter.
func parseRange(from, to string) (*time.Time, *time.Time, error) {
	if from == "" && to == "" {
		return nil, nil, nil
	}
	if from == "" || to == "" {
		return nil, nil, common.NewUserError("--from and --to must be given together", nil)
	}

	start, err := parseDate(from)
	if err != nil {
		return nil, nil, err
	}
	day, err := parseDate(to)
	if err != nil {
		return nil, nil, err
	}
	end := day.AddDate(0, 0, 1).Add(-time.Millisecond)

	if end.Before(start) {
		return nil, nil, common.NewUserError(
			fmt.Sprintf("--to %s is before --from %s", to, from), storage.ErrInvalidDateRange)
	}
	return &start, &end, nil
}
