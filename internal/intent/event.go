package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// #region errors
// ErrInvalidEvent is wrapped by every event validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// ValidationError describes one rejected Event field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}

// #endregion errors

// #region flags
// Flags is an unordered set of free-form tags, stored sorted and deduplicated.
type Flags []string

// NewFlags builds a normalized flag set. Empty tags are dropped.
func NewFlags(tags ...string) Flags {
	out := make(Flags, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Has reports whether tag is in the set. Order does not matter.
func (f Flags) Has(tag string) bool {
	return slices.Contains(f, tag)
}

// Key encodes the normalized set as a JSON list, so tags containing
// separators cannot collide; equal sets yield equal keys.
func (f Flags) Key() string {
	b, _ := json.Marshal([]string(NewFlags(f...)))
	return string(b)
}

// MarshalJSON renders the set as a list, never null.
func (f Flags) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// UnmarshalJSON accepts any list of strings and normalizes it.
func (f *Flags) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode flags: %w", err)
	}
	*f = NewFlags(raw...)
	return nil
}

// #endregion flags

// #region event-constructor
// NewEvent validates and builds an Event.
func NewEvent(state State, intensity int, flags ...string) (Event, error) {
	ev := Event{State: state, Intensity: intensity, Flags: NewFlags(flags...)}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// MustEvent is NewEvent for fixtures and tests; it panics on invalid input.
func MustEvent(state State, intensity int, flags ...string) Event {
	ev, err := NewEvent(state, intensity, flags...)
	if err != nil {
		panic(err)
	}
	return ev
}

// Validate checks state membership and the intensity range. Out-of-range
// intensities are rejected, never clamped.
func (e Event) Validate() error {
	var errs []error
	if !e.State.Valid() {
		errs = append(errs, &ValidationError{
			Field:  "state",
			Reason: fmt.Sprintf("%q is not one of %v", e.State, States()),
		})
	}
	if e.Intensity < 0 || e.Intensity > 100 {
		errs = append(errs, &ValidationError{
			Field:  "intensity",
			Reason: fmt.Sprintf("%d outside [0, 100]", e.Intensity),
		})
	}
	return errors.Join(errs...)
}

// SelectionKey identifies the logical configuration: state plus sorted flags.
func (e Event) SelectionKey() string {
	return string(e.State) + "|" + e.Flags.Key()
}

// #endregion event-constructor
