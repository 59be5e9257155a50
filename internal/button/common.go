// Package button reports presses of the push button that cycles the effects.
package button

import "fmt"

type Event struct {
	Pressed bool
}

func (b Event) String() string {
	action := "pressed"
	if !b.Pressed {
		action = "released"
	}
	return fmt.Sprintf("Button was %v", action)
}

// Presses forwards the press events of events until it is closed.
func Presses(events <-chan Event) <-chan struct{} {
	c := make(chan struct{})
	go func() {
		defer close(c)
		for e := range events {
			if e.Pressed {
				c <- struct{}{}
			}
		}
	}()
	return c
}
