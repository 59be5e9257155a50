//go:build pi

package button

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Watch sets up the named pin as a pulled up button input and reports its edges until ctx is done.
func Watch(ctx context.Context, pin string) (<-chan Event, error) {
	log.Infoln("Initializing button handler")
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize periph: %w", err)
	}
	button := gpioreg.ByName(pin)
	if button == nil {
		return nil, fmt.Errorf("no such pin: %s", pin)
	}
	if err := button.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("could not set up %s as input: %w", pin, err)
	}

	c := make(chan Event, 5)
	go handleButton(ctx, button, c)
	return c, nil
}

func handleButton(ctx context.Context, b gpio.PinIO, c chan<- Event) {
	defer close(c)

	last := b.Read()
	for ctx.Err() == nil {
		// wait for the edge
		if !b.WaitForEdge(time.Second) {
			continue
		}

		// debounce
		l := b.Read()
		if l == last {
			continue
		}

		time.Sleep(15 * time.Millisecond)
		if l == b.Read() {
			// ... and handle
			last = l
			select {
			case c <- Event{Pressed: l == gpio.Low}:
			case <-ctx.Done():
			}
		}
	}
}
