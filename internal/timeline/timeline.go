// Package timeline implements the status state machine that rewrites an
// order's production timeline on every status change.
package timeline

import (
	"time"

	"github.com/amendes/orderdesk/internal/models"
)

// TimestampLayout renders event timestamps in business-local time.
const TimestampLayout = "02 Jan, 15:04"

// weights orders statuses for the monotonicity rule. Quotes carry no weight;
// they have no timeline at all.
var weights = map[models.Status]int{
	models.StatusOrderPlaced:  1,
	models.StatusInProduction: 2,
	models.StatusCompleted:    3,
	models.StatusCanceled:     4,
}

// descriptions are the fixed sentences stamped on a completed event.
var descriptions = map[models.Status]string{
	models.StatusOrderPlaced:  "Order placed",
	models.StatusInProduction: "Order moved into production",
	models.StatusCompleted:    "Order completed and ready for delivery",
	models.StatusCanceled:     "Order canceled",
}

// Weight returns the fixed ordering value of a status, 0 for QUOTE.
func Weight(s models.Status) int { return weights[s] }

// Description returns the fixed sentence for a status.
func Description(s models.Status) string { return descriptions[s] }

// Stamp formats a moment for storage on a timeline event.
func Stamp(now time.Time) string { return now.Format(TimestampLayout) }

// Seed builds the standard three-event production timeline for a freshly
// placed order. The first event is completed immediately; initialLedger, when
// non-empty, is embedded in its description so the down payment shows on the
// customer tracking page.
func Seed(now time.Time, initialLedger string) []models.StatusEvent {
	placedDesc := descriptions[models.StatusOrderPlaced]
	if initialLedger != "" {
		placedDesc += ". Payment recorded: " + initialLedger
	}
	return []models.StatusEvent{
		{Status: models.StatusOrderPlaced, Position: 0, Completed: true, Timestamp: Stamp(now), Description: placedDesc},
		{Status: models.StatusInProduction, Position: 1},
		{Status: models.StatusCompleted, Position: 2},
	}
}

// Apply transitions the timeline to target:
//
//   - every event strictly below the target's weight is marked completed,
//   - the target event is completed and restamped with now, its fixed
//     description, and the caller-supplied location,
//   - a CANCELED event is appended when missing (it is never pre-seeded),
//   - events above the target's weight are left exactly as they were.
//
// The last rule is deliberate: moving an order backward never un-completes a
// further-along event, so the record of having reached it survives. Any
// status may follow any other; there is no illegal-transition check.
func Apply(events []models.StatusEvent, target models.Status, location string, now time.Time) []models.StatusEvent {
	tw := weights[target]
	found := false
	for i := range events {
		switch {
		case weights[events[i].Status] < tw:
			events[i].Completed = true
		case events[i].Status == target:
			found = true
			events[i].Completed = true
			events[i].Timestamp = Stamp(now)
			events[i].Description = descriptions[target]
			if location != "" {
				events[i].Location = location
			}
		}
	}
	if !found {
		events = append(events, models.StatusEvent{
			Status:      target,
			Position:    len(events),
			Completed:   true,
			Timestamp:   Stamp(now),
			Description: descriptions[target],
			Location:    location,
		})
	}
	return events
}
