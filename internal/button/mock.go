//go:build !pi

package button

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// Watch simulates the button with SIGHUP: every signal is a press. The pin is ignored.
func Watch(ctx context.Context, _ string) (<-chan Event, error) {
	log.Infoln("Initializing button handler, send SIGHUP to press")

	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)

	c := make(chan Event, 5)
	go simulateButton(ctx, hupChan, c)
	return c, nil
}

func simulateButton(ctx context.Context, hupChan chan os.Signal, c chan<- Event) {
	defer close(c)
	defer signal.Stop(hupChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hupChan:
			select {
			case c <- Event{Pressed: true}:
			case <-ctx.Done():
				return
			}
		}
	}
}
