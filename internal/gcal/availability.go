package gcal

import (
	"context"
	"errors"
	"fmt"

	"github.com/talobot/talobot/internal/schedule"
)

// ErrAvailabilityCheck marks a failed availability query. A failure must
// never be read as "no conflicts found": callers surface it instead of
// silently booking over a window they could not inspect.
var ErrAvailabilityCheck = errors.New("gcal: availability check failed")

// CheckAvailability counts events overlapping the window, filtered by the
// service label where the calendar supports it. The caller compares the
// count against the service capacity; booking is allowed while
// count < capacity.
func CheckAvailability(ctx context.Context, client Client, creds Credentials, window schedule.Window, serviceLabel string) (int, error) {
	events, err := client.ListEvents(ctx, creds, window, serviceLabel)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAvailabilityCheck, err)
	}
	return len(events), nil
}
