package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/callebjorkell/pixelbus/internal/bus"
	"github.com/callebjorkell/pixelbus/internal/config"
	"github.com/callebjorkell/pixelbus/internal/pixel"
	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/callebjorkell/pixelbus/internal/waveform"
)

// dump clocks one refresh cycle through the streaming engine and prints every half as it leaves the buffer.
func dump(w io.Writer, conf *config.Config, color string, brightness uint8) error {
	c, err := strconv.ParseUint(color, 16, 32)
	if err != nil || len(color) != 6 {
		return fmt.Errorf("invalid color %q", color)
	}
	if int(brightness) > conf.MaxBrightness {
		return fmt.Errorf("brightness %d is above the maximum of %d", brightness, conf.MaxBrightness)
	}

	store := pixel.NewStore(conf.Leds, uint8(conf.MaxBrightness), conf.FadeOut)
	r, g, b := pixel.Unpack(uint32(c))
	store.Fill(r, g, b, brightness)

	enc := conf.Encoder()
	engine := stream.NewEngine(store, enc, stream.WithResetThreshold(conf.Threshold()))
	engine.Prime()

	half := 0
	loop := bus.NewLoop(engine.Buffer(), engine, conf.BitRate, bus.WithSinks(bus.SinkFunc(func(codes []byte) {
		r, g, b, idle := enc.Decode(codes)
		label := fmt.Sprintf("#%02x%02x%02x", r, g, b)
		if idle {
			label = "idle"
		}
		fmt.Fprintf(w, "%4d %-8s %v\n", half, label, codes)
		half++
	})))

	fmt.Fprintf(w, "codes: one=%d zero=%d, %v per slot\n", enc.One, enc.Zero, loop.HalfPeriod())
	for i := 0; i < conf.Leds+engine.Threshold(); i++ {
		loop.Step()
	}
	return nil
}

func printConfig(w io.Writer, conf *config.Config) {
	enc := conf.Encoder()
	slot := bus.NewLoop(nil, nil, conf.BitRate).HalfPeriod()
	fmt.Fprintf(w, "leds:            %d\n", conf.Leds)
	fmt.Fprintf(w, "pulse codes:     one=%d zero=%d (period %d)\n", enc.One, enc.Zero, conf.TimerPeriod)
	fmt.Fprintf(w, "slot time:       %v (%d codes)\n", slot, waveform.SlotSize)
	fmt.Fprintf(w, "reset events:    %d (%v latch)\n", conf.Threshold(), slot*time.Duration(conf.Threshold()))
	fmt.Fprintf(w, "refresh:         %v\n", slot*time.Duration(conf.Leds+conf.Threshold()))
	fmt.Fprintf(w, "max brightness:  %d%%\n", conf.MaxBrightness)
	fmt.Fprintf(w, "fade out:        %dms\n", conf.FadeOut)
	fmt.Fprintf(w, "output:          %s on %s\n", conf.Output.Driver, conf.Output.Pin)
	fmt.Fprintf(w, "monitor:         %s\n", conf.Monitor.Addr)
}
