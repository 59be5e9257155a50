package bus

import (
	log "github.com/sirupsen/logrus"
)

// Renderer shows decoded frames on a device that does its own pulse timing.
type Renderer interface {
	Render(frame []uint32) error
	Close() error
}

// Attach renders every frame the framer completes on r.
func Attach(f *Framer, r Renderer) {
	f.OnFrame(func(frame []uint32) {
		if err := r.Render(frame); err != nil {
			log.Warnf("Could not render frame: %v", err)
		}
	})
}
