package network

import "vinput/internal/input"

// Injector is the part of *input.Simulator the network services drive.
type Injector interface {
	Simulate(ev input.Event) error
	MoveRelative(dx, dy int32, wantStart bool) (input.Point, error)
}
