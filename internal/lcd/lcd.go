//go:build pi

package lcd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Open initializes the display on its fixed pins.
func Open() (Printer, error) {
	log.Infoln("Initializing LCD")
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize periph: %w", err)
	}

	names := []string{registerSelectionPin, clockEdgePin, data4Pin, data5Pin, data6Pin, data7Pin}
	pins := make([]Pin, len(names))
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("no such pin: %s", name)
		}
		pins[i] = p
	}
	return NewDisplay(pins[0], pins[1], [4]Pin{pins[2], pins[3], pins[4], pins[5]}), nil
}
