// Package lcd drives a 16x2 HD44780 character display in 4-bit mode. It shows the status of the LED bus.
package lcd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

type Line byte

func (l Line) String() string {
	switch l {
	case Line1:
		return "L1"
	case Line2:
		return "L2"
	}
	return "N/A"
}

const (
	registerSelectionPin = "GPIO4"
	clockEdgePin         = "GPIO17"
	data4Pin             = "GPIO25"
	data5Pin             = "GPIO22"
	data6Pin             = "GPIO23"
	data7Pin             = "GPIO24"

	Line1 Line = 0x80
	Line2 Line = 0xC0

	lineWidth   = 16
	character   = gpio.High
	command     = gpio.Low
	signalPulse = 500000 * time.Nanosecond
	signalDelay = 500000 * time.Nanosecond
)

// Printer writes whole lines.
type Printer interface {
	PrintLine(l Line, msg string)
	Clear(l Line)
}

// Pin is the output half of a periph GPIO pin.
type Pin interface {
	Out(l gpio.Level) error
}

type Display struct {
	mu                sync.Mutex
	registerSelection Pin
	clockEdge         Pin
	dataPins          [4]Pin
	sleep             func(time.Duration)
}

// NewDisplay sets up the display behind the given pins.
func NewDisplay(registerSelection, clockEdge Pin, data [4]Pin) *Display {
	d := &Display{
		registerSelection: registerSelection,
		clockEdge:         clockEdge,
		dataPins:          data,
		sleep:             time.Sleep,
	}
	d.init()
	return d
}

func (d *Display) init() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sendByte(0x33, command)
	d.sendByte(0x32, command)
	d.sendByte(0x28, command)
	d.sendByte(0x0C, command)
	d.sendByte(0x06, command)
	d.sendByte(0x01, command)
}

func (d *Display) sendByte(bits byte, mode gpio.Level) {
	_ = d.registerSelection.Out(mode)
	d.pulseByte(bits, 0x10)
	d.pulseByte(bits, 0x01)
}

func (d *Display) pulseByte(bits, mask byte) {
	for i, pin := range d.dataPins {
		_ = pin.Out(gpio.Low)
		if bits&(mask<<uint(i)) != 0 {
			_ = pin.Out(gpio.High)
		}
	}
	d.sleep(signalDelay)
	_ = d.clockEdge.Out(gpio.High)
	d.sleep(signalPulse)
	_ = d.clockEdge.Out(gpio.Low)
	d.sleep(signalDelay)
}

func (d *Display) PrintLine(l Line, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sendByte(byte(l), command)
	m := fmt.Sprintf("%-16s", msg)
	for i := 0; i < lineWidth; i++ {
		d.sendByte(m[i], character)
	}
}

func (d *Display) Clear(l Line) {
	d.PrintLine(l, "")
}

// ShowStatus refreshes both lines from status every interval until ctx is done, then clears the display.
func ShowStatus(ctx context.Context, p Printer, interval time.Duration, status func() (string, string)) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	var last1, last2 string
	for {
		l1, l2 := status()
		if l1 != last1 {
			p.PrintLine(Line1, l1)
			last1 = l1
		}
		if l2 != last2 {
			p.PrintLine(Line2, l2)
			last2 = l2
		}

		select {
		case <-ctx.Done():
			p.PrintLine(Line1, "  Sleeping...")
			p.Clear(Line2)
			return nil
		case <-t.C:
		}
	}
}
