// Package osutils holds host integration helpers used by the agent.
package osutils

import (
	"fmt"
	"log"

	"vinput/internal/input"
)

// Mover moves the pointer relative to its current position.
type Mover interface {
	MoveRelative(dx, dy int32, wantStart bool) (input.Point, error)
}

// WakeUp nudges the pointer by one pixel and back to wake the system from
// sleep or screensaver. The pointer ends where it started.
func WakeUp(m Mover) error {
	log.Println("WakeUp: Simulating mouse movement to wake system...")
	if _, err := m.MoveRelative(1, 1, false); err != nil {
		return fmt.Errorf("wake up: %w", err)
	}
	if _, err := m.MoveRelative(-1, -1, false); err != nil {
		return fmt.Errorf("wake up: %w", err)
	}
	return nil
}
