//go:build pi

package bus

import (
	"fmt"

	ws "github.com/rpi-ws281x/rpi-ws281x-go"
	log "github.com/sirupsen/logrus"
)

// WS281x renders frames with the Raspberry Pi ws2811 PWM/DMA driver.
type WS281x struct {
	dev *ws.WS2811
}

func OpenWS281x(pin string, leds int) (*WS281x, error) {
	var gpio int
	if _, err := fmt.Sscanf(pin, "GPIO%d", &gpio); err != nil {
		return nil, fmt.Errorf("invalid pin %q: %w", pin, err)
	}

	opt := ws.DefaultOptions
	opt.Channels[0].Brightness = 255
	opt.Channels[0].LedCount = leds
	opt.Channels[0].GpioPin = gpio

	dev, err := ws.MakeWS2811(&opt)
	if err != nil {
		return nil, err
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize ws2811: %w", err)
	}
	log.Infof("Rendering %d LEDs on GPIO%d", leds, gpio)
	return &WS281x{dev: dev}, nil
}

func (w *WS281x) Render(frame []uint32) error {
	leds := w.dev.Leds(0)
	for i := range leds {
		leds[i] = 0
		if i < len(frame) {
			leds[i] = frame[i]
		}
	}
	return w.dev.Render()
}

func (w *WS281x) Close() error {
	w.dev.Fini()
	return nil
}
