package bus

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// PixelWriter takes packed RGB triplets, like an nrzled device.
type PixelWriter interface {
	Write(pixels []byte) (int, error)
	Halt() error
}

// SPI renders frames through the nrzled driver, which produces the pulse train with the SPI clock.
type SPI struct {
	dev  PixelWriter
	port io.Closer
	rgb  []byte
}

// OpenSPI opens the SPI port (empty for the first one available) and an nrzled device on it.
func OpenSPI(port string, leds int, bitRate uint32) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize periph: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("could not open SPI port %q: %w", port, err)
	}
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: leds,
		Channels:  3,
		Freq:      physic.Frequency(bitRate) * physic.Hertz,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("could not create LED device: %w", err)
	}
	log.Infof("Rendering %d LEDs on %v", leds, dev)
	return NewSPI(dev, p, leds), nil
}

func NewSPI(dev PixelWriter, port io.Closer, leds int) *SPI {
	return &SPI{
		dev:  dev,
		port: port,
		rgb:  make([]byte, 3*leds),
	}
}

func (s *SPI) Render(frame []uint32) error {
	for i := range s.rgb {
		s.rgb[i] = 0
	}
	for i, c := range frame {
		if 3*i+2 >= len(s.rgb) {
			break
		}
		s.rgb[3*i] = byte(c >> 16)
		s.rgb[3*i+1] = byte(c >> 8)
		s.rgb[3*i+2] = byte(c)
	}
	_, err := s.dev.Write(s.rgb)
	return err
}

func (s *SPI) Close() error {
	if err := s.dev.Halt(); err != nil {
		log.Warnf("Could not halt LEDs: %v", err)
	}
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
