// Package animation is the periodic side of the LED pipeline: it advances fades on a timer and runs the effects
// that write the pixel store.
package animation

import (
	"context"
	"time"

	"github.com/callebjorkell/pixelbus/internal/fade"
	log "github.com/sirupsen/logrus"
)

// Clock returns monotonic milliseconds.
type Clock interface {
	Now() uint64
}

// Driver ticks the fade engine.
type Driver struct {
	fades    *fade.Engine
	interval time.Duration
	start    time.Time
}

func NewDriver(fades *fade.Engine, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Driver{
		fades:    fades,
		interval: interval,
		start:    time.Now(),
	}
}

// Now is the number of milliseconds since the driver was created.
func (d *Driver) Now() uint64 {
	return uint64(time.Since(d.start).Milliseconds())
}

func (d *Driver) Run(ctx context.Context) error {
	log.Debugf("Ticking fades every %v", d.interval)
	t := time.NewTicker(d.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			d.fades.Tick(d.Now())
		}
	}
}
