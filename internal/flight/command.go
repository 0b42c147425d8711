package flight

import "fmt"

// Movement selects the horizontal travel direction of a command.
type Movement string

const (
	MoveForward Movement = "fwd"
	MoveReverse Movement = "rev"
)

// Speed bounds for a single command.
const (
	MinSpeed = 0
	MaxSpeed = 5
)

// Command is one validated pilot instruction: horizontal speed, altitude
// delta, and travel direction.
type Command struct {
	Speed    int
	Altitude int
	Movement Movement
}

// InvalidCommandError reports a malformed or out-of-range command. The
// session state is untouched and the connection stays open.
type InvalidCommandError struct {
	Reason string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Invalid input data: %s", e.Reason)
}

// Validate checks speed range and movement direction. Altitude deltas may
// have any sign and magnitude.
func (c Command) Validate() error {
	if c.Speed < MinSpeed || c.Speed > MaxSpeed {
		return &InvalidCommandError{
			Reason: fmt.Sprintf("'speed' must be between %d and %d, got %d", MinSpeed, MaxSpeed, c.Speed),
		}
	}
	if c.Movement != MoveForward && c.Movement != MoveReverse {
		return &InvalidCommandError{
			Reason: fmt.Sprintf("'movement' must be one of ['fwd', 'rev'], got '%s'", c.Movement),
		}
	}
	return nil
}
