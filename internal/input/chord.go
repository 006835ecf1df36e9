package input

import (
	"errors"
	"fmt"
	"strings"
)

// Chord is a key combination such as "Ctrl+Shift+T". Keys are pressed in
// order and released in reverse order.
type Chord []Key

// ParseChord splits s on "+" and resolves each part with ParseKey.
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyKeyName
	}
	parts := strings.Split(s, "+")
	chord := make(Chord, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: in chord %q", ErrEmptyKeyName, s)
		}
		k, err := ParseKey(p)
		if err != nil {
			return nil, err
		}
		chord = append(chord, k)
	}
	return chord, nil
}

func (c Chord) String() string {
	names := make([]string, len(c))
	for i, k := range c {
		names[i] = k.String()
	}
	return strings.Join(names, "+")
}

// Events returns the press and release events of c.
func (c Chord) Events() []Event {
	evs := make([]Event, 0, 2*len(c))
	for _, k := range c {
		evs = append(evs, KeyPress(k))
	}
	for i := len(c) - 1; i >= 0; i-- {
		evs = append(evs, KeyRelease(c[i]))
	}
	return evs
}

// Sink accepts events. *Simulator and remote senders implement it.
type Sink interface {
	Simulate(ev Event) error
}

// Play presses the keys of c in order on sink and releases them in
// reverse. If a press fails the keys already down are still released, so
// modifiers are not left held. The first error is returned, joined with
// release errors.
func (c Chord) Play(sink Sink) error {
	var pressed int
	var err error
	for _, k := range c {
		if err = sink.Simulate(KeyPress(k)); err != nil {
			break
		}
		pressed++
	}
	for i := pressed - 1; i >= 0; i-- {
		if rerr := sink.Simulate(KeyRelease(c[i])); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}
	return err
}

// Chord plays c on the simulator.
func (s *Simulator) Chord(c Chord) error {
	return c.Play(s)
}
