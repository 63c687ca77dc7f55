package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"birdfeed/app/config"
)

// Slot is one posting opportunity within a day.
type Slot struct {
	Index int
	At    time.Time
}

// Planner hands out posting slots. With explicit post times configured
// it uses those; otherwise it spreads the daily quota evenly across the
// posting window. Slots reset at local midnight.
type Planner struct {
	offsets []time.Duration // from local midnight, ascending
	minGap  time.Duration
	loc     *time.Location

	mu       sync.Mutex
	day      time.Time // midnight of the day consumed tracks
	consumed map[int]bool
}

func NewPlanner(schedule config.Schedule, loc *time.Location) (*Planner, error) {
	if loc == nil {
		loc = time.Local
	}

	offsets, err := slotOffsets(schedule)
	if err != nil {
		return nil, err
	}

	minGap := schedule.GetMinGap()
	for i := 1; i < len(offsets); i++ {
		if gap := offsets[i] - offsets[i-1]; gap < minGap {
			return nil, fmt.Errorf("slots %s and %s are %s apart, below the %s minimum",
				formatOffset(offsets[i-1]), formatOffset(offsets[i]), gap, minGap)
		}
	}

	return &Planner{
		offsets:  offsets,
		minGap:   minGap,
		loc:      loc,
		consumed: map[int]bool{},
	}, nil
}

func slotOffsets(schedule config.Schedule) ([]time.Duration, error) {
	if len(schedule.PostTimes) > 0 {
		offsets := make([]time.Duration, 0, len(schedule.PostTimes))
		for _, raw := range schedule.PostTimes {
			at, err := time.Parse("15:04", raw)
			if err != nil {
				return nil, fmt.Errorf("invalid post time %q: %w", raw, err)
			}
			offsets = append(offsets, time.Duration(at.Hour())*time.Hour+time.Duration(at.Minute())*time.Minute)
		}
		sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
		return offsets, nil
	}

	count := schedule.PostsPerDay
	if count < 1 {
		return nil, fmt.Errorf("posts per day must be at least 1")
	}

	window := time.Duration(schedule.DayEndHour-schedule.DayStartHour) * time.Hour
	if window <= 0 {
		return nil, fmt.Errorf("posting window %d:00-%d:00 is empty", schedule.DayStartHour, schedule.DayEndHour)
	}

	// Even spread: each slot sits at the start of its share of the window
	offsets := make([]time.Duration, count)
	start := time.Duration(schedule.DayStartHour) * time.Hour
	for i := 0; i < count; i++ {
		offsets[i] = start + window*time.Duration(i)/time.Duration(count)
	}
	return offsets, nil
}

// NextDue returns the earliest slot of the current day whose time has
// arrived and which has not been consumed yet.
func (p *Planner) NextDue(now time.Time) (Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now = now.In(p.loc)
	p.rollDay(now)

	for i, offset := range p.offsets {
		at := p.day.Add(offset)
		if at.After(now) {
			break
		}
		if !p.consumed[i] {
			return Slot{Index: i, At: at}, true
		}
	}
	return Slot{}, false
}

// Consume marks a slot as used for the rest of its day.
func (p *Planner) Consume(slot Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rollDay(slot.At.In(p.loc))
	p.consumed[slot.Index] = true
}

// NextAt reports when the next unconsumed slot opens, for idle-time
// logging. Looks at today first, then tomorrow's first slot.
func (p *Planner) NextAt(now time.Time) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now = now.In(p.loc)
	p.rollDay(now)

	for i, offset := range p.offsets {
		at := p.day.Add(offset)
		if !p.consumed[i] && at.After(now) {
			return at
		}
	}
	return p.day.AddDate(0, 0, 1).Add(p.offsets[0])
}

// rollDay resets consumption state when the calendar day changes.
// Callers hold p.mu.
func (p *Planner) rollDay(now time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	if !midnight.Equal(p.day) {
		p.day = midnight
		p.consumed = map[int]bool{}
	}
}

// MinGap is the configured minimum spacing between publications.
func (p *Planner) MinGap() time.Duration {
	return p.minGap
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
