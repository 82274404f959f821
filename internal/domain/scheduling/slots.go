package scheduling

import (
	"fmt"
	"time"

	"github.com/medsched/medsched/internal/domain/directory"
)

// GenerateSlots expands an availability rule into the day's bookable slots.
// Pure function of its inputs. The walk advances in whole slot durations
// from the window start; slots overlapping a break or running past the
// window end are dropped but the walk keeps its cadence. A positive
// rule.Slots caps the output.
func GenerateSlots(rule directory.AvailabilityRule, defaultDuration int) ([]TimeSlot, error) {
	duration := rule.SlotDuration
	if duration <= 0 {
		duration = defaultDuration
	}
	if duration <= 0 {
		return nil, fmt.Errorf("slot duration must be positive")
	}

	start, err := time.Parse(TimeLayout, rule.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time %q: %w", rule.StartTime, err)
	}
	end, err := time.Parse(TimeLayout, rule.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time %q: %w", rule.EndTime, err)
	}

	type span struct{ lo, hi time.Time }
	breaks := make([]span, 0, len(rule.Breaks))
	for _, b := range rule.Breaks {
		lo, err := time.Parse(TimeLayout, b.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid break start %q: %w", b.Start, err)
		}
		hi, err := time.Parse(TimeLayout, b.End)
		if err != nil {
			return nil, fmt.Errorf("invalid break end %q: %w", b.End, err)
		}
		breaks = append(breaks, span{lo, hi})
	}

	step := time.Duration(duration) * time.Minute
	slots := []TimeSlot{}
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		slotEnd := cur.Add(step)

		// A slot collides with a break when it starts inside it, ends
		// inside it, or spans it entirely. Bounds are inclusive.
		inBreak := false
		for _, br := range breaks {
			if within(cur, br.lo, br.hi) || within(slotEnd, br.lo, br.hi) ||
				(!cur.After(br.lo) && !slotEnd.Before(br.hi)) {
				inBreak = true
				break
			}
		}

		if !inBreak && !slotEnd.After(end) {
			slots = append(slots, TimeSlot{
				StartTime: cur.Format(TimeLayout),
				EndTime:   slotEnd.Format(TimeLayout),
				Available: true,
			})
		}
	}

	if rule.Slots > 0 && len(slots) > rule.Slots {
		slots = slots[:rule.Slots]
	}
	return slots, nil
}

func within(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// AddMinutes shifts a wall-clock "15:04" string, clamping to the same day.
func AddMinutes(clock string, minutes int) (string, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(TimeLayout), nil
}
