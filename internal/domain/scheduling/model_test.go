package scheduling

import (
	"errors"
	"testing"
	"time"
)

func daySched(times ...string) *DaySchedule {
	ds := &DaySchedule{Date: DateOf(time.Now())}
	for _, tm := range times {
		end, _ := AddMinutes(tm, 30)
		ds.Slots = append(ds.Slots, TimeSlot{StartTime: tm, EndTime: end, Available: true})
	}
	ds.TotalSlots = len(ds.Slots)
	ds.AvailableSlots = len(ds.Slots)
	return ds
}

func TestReserveAndRelease(t *testing.T) {
	ds := daySched("09:00", "09:30", "10:00")

	if err := ds.Reserve("09:30", "b1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if ds.AvailableSlots != 2 {
		t.Errorf("available = %d, want 2", ds.AvailableSlots)
	}
	if ds.Slots[1].Available || ds.Slots[1].BookingID != "b1" {
		t.Errorf("slot not marked: %+v", ds.Slots[1])
	}

	if err := ds.Reserve("09:30", "b2"); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("double reserve err = %v, want ErrSlotUnavailable", err)
	}
	if err := ds.Reserve("11:00", "b2"); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("unknown time err = %v, want ErrSlotUnavailable", err)
	}

	if !ds.Release("09:30") {
		t.Fatal("Release returned false")
	}
	if ds.AvailableSlots != 3 || !ds.Slots[1].Available || ds.Slots[1].BookingID != "" {
		t.Errorf("release did not restore slot: %+v available=%d", ds.Slots[1], ds.AvailableSlots)
	}
	if ds.Release("09:30") {
		t.Error("releasing a free slot should return false")
	}
}

func TestReserveExhausted(t *testing.T) {
	ds := daySched("09:00")
	if err := ds.Reserve("09:00", "b1"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := ds.Reserve("09:00", "b2"); !errors.Is(err, ErrNoSlotsLeft) {
		t.Errorf("err = %v, want ErrNoSlotsLeft", err)
	}
}

func TestAvailableCounterMatchesSlots(t *testing.T) {
	ds := daySched("09:00", "09:30", "10:00", "10:30")
	ds.Reserve("09:00", "a")
	ds.Reserve("10:00", "b")
	ds.Release("09:00")

	free := 0
	for _, sl := range ds.Slots {
		if sl.Available {
			free++
		}
	}
	if ds.AvailableSlots != free {
		t.Errorf("counter %d != free slots %d", ds.AvailableSlots, free)
	}
	if got := len(ds.FreeSlots()); got != free {
		t.Errorf("FreeSlots len = %d, want %d", got, free)
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	d := DateOf(time.Date(2026, 3, 14, 23, 45, 0, 0, loc))
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Errorf("DateOf not normalized: %v", d)
	}
	if d.Format(DateLayout) != "2026-03-14" {
		t.Errorf("date = %s", d.Format(DateLayout))
	}
}
