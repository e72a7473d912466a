package types

import "fmt"

// Direction is the side of a wager: up bets win when the end price exceeds
// the start price, down bets the reverse. The zero value is invalid.
type Direction uint8

const (
	// DirectionUp bets on the price rising over the round.
	DirectionUp Direction = 1
	// DirectionDown bets on the price falling over the round.
	DirectionDown Direction = 2
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the two defined sides.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Opposite returns the other side. Only meaningful for valid directions.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	default:
		return d
	}
}

// ParseDirection parses the wire name of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	default:
		return 0, fmt.Errorf("%w: direction %q", ErrValidation, s)
	}
}
