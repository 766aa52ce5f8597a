package logic

const (
	// BlinkPeriod is the number of ticks in one red/green blink cycle.
	BlinkPeriod = 10
	// BlinkRedTicks is the number of ticks at the start of a cycle shown red.
	BlinkRedTicks = 5
)

// Decide maps the lock and hinge states plus the blink tick to the LED
// colour and the tick for the next iteration.
//
//	Locked   + Closed: red, tick reset
//	Locked   + Open:   red for ticks 0-4, green for 5-9, tick advances mod 10
//	Unlocked + any:    green, tick reset
func Decide(lock LockState, hinge HingeState, tick uint) (Color, uint) {
	if lock != Locked {
		return Green, 0
	}
	if hinge != Open {
		return Red, 0
	}
	c := Red
	if tick%BlinkPeriod >= BlinkRedTicks {
		c = Green
	}
	return c, (tick + 1) % BlinkPeriod
}
