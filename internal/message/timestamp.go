package message

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampKind says which meaning a Timestamp carries.
type TimestampKind uint8

const (
	// KindPosition is the 0-based extraction order within one scan. Freshly
	// parsed messages carry this, and pairing and UI ordering depend on it.
	KindPosition TimestampKind = iota
	// KindWallClock is Unix milliseconds.
	KindWallClock
)

// wallClockFloor separates the two meanings on the wire, where both are a bare
// number: 1e11 ms is March 1973, far above any position index.
const wallClockFloor = int64(1e11)

// Timestamp is either an extraction position or a wall-clock time.
type Timestamp struct {
	Kind  TimestampKind
	Value int64
}

// AtPosition is the timestamp of the i-th element of a scan.
func AtPosition(i int) Timestamp {
	return Timestamp{Kind: KindPosition, Value: int64(i)}
}

// WallClock is the timestamp of t in Unix milliseconds.
func WallClock(t time.Time) Timestamp {
	return Timestamp{Kind: KindWallClock, Value: t.UnixMilli()}
}

// Position returns the scan index when the timestamp is a position.
func (t Timestamp) Position() (int, bool) {
	if t.Kind != KindPosition {
		return 0, false
	}
	return int(t.Value), true
}

// Time returns the wall-clock time when the timestamp is one.
func (t Timestamp) Time() (time.Time, bool) {
	if t.Kind != KindWallClock {
		return time.Time{}, false
	}
	return time.UnixMilli(t.Value), true
}

// Before orders timestamps by their numeric value, as consumers did before the
// two meanings were told apart.
func (t Timestamp) Before(o Timestamp) bool {
	return t.Value < o.Value
}

// Display renders the timestamp for exports: local wall-clock time, or "#n"
// (1-based) for a position.
func (t Timestamp) Display() string {
	if tm, ok := t.Time(); ok {
		return tm.Format("2006/1/2 15:04:05")
	}
	return "#" + strconv.FormatInt(t.Value+1, 10)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.Value, 10)), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var v json.Number
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	n, err := v.Int64()
	if err != nil {
		f, ferr := v.Float64()
		if ferr != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		n = int64(f)
	}
	t.Value = n
	t.Kind = KindPosition
	if n >= wallClockFloor {
		t.Kind = KindWallClock
	}
	return nil
}
