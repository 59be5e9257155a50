package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/callebjorkell/pixelbus/internal/animation"
	"github.com/callebjorkell/pixelbus/internal/bus"
	"github.com/callebjorkell/pixelbus/internal/button"
	"github.com/callebjorkell/pixelbus/internal/config"
	"github.com/callebjorkell/pixelbus/internal/fade"
	"github.com/callebjorkell/pixelbus/internal/lcd"
	"github.com/callebjorkell/pixelbus/internal/monitor"
	"github.com/callebjorkell/pixelbus/internal/pixel"
	"github.com/callebjorkell/pixelbus/internal/stream"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// outputs connects the configured driver to the framer. The returned function releases the device.
func outputs(conf *config.Config, framer *bus.Framer) ([]bus.Sink, func(), error) {
	sinks := []bus.Sink{framer}
	release := func() {}

	var r bus.Renderer
	switch conf.Output.Driver {
	case config.DriverSim:
		framer.OnFrame(func(frame []uint32) {
			log.Tracef("frame: %06x", frame)
		})
	case config.DriverGPIO:
		g, err := bus.OpenGPIO(conf.Output.Pin, conf.BitRate, conf.Encoder())
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, g)
	case config.DriverSPI:
		s, err := bus.OpenSPI(conf.Output.Port, conf.Leds, conf.BitRate)
		if err != nil {
			return nil, nil, err
		}
		r = s
	case config.DriverWS281x:
		w, err := bus.OpenWS281x(conf.Output.Pin, conf.Leds)
		if err != nil {
			return nil, nil, err
		}
		r = w
	}
	if r != nil {
		bus.Attach(framer, r)
		release = func() {
			if err := r.Close(); err != nil {
				log.Warnf("Could not close output: %v", err)
			}
		}
	}
	return sinks, release, nil
}

func startServer(ctx context.Context, conf *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := pixel.NewStore(conf.Leds, uint8(conf.MaxBrightness), conf.FadeOut)
	enc := conf.Encoder()
	engine := stream.NewEngine(store, enc, stream.WithResetThreshold(conf.Threshold()))
	engine.Prime()

	framer := bus.NewFramer(enc, conf.Leds)
	sinks, release, err := outputs(conf, framer)
	if err != nil {
		return fmt.Errorf("could not open %s output: %w", conf.Output.Driver, err)
	}
	defer release()
	loop := bus.NewLoop(engine.Buffer(), engine, conf.BitRate, bus.WithSinks(sinks...))

	fades := fade.NewEngine(store)
	driver := animation.NewDriver(fades, conf.TickInterval())
	anim := animation.NewAnimator(fades, driver)
	mon := monitor.New(conf.Monitor.Addr, engine, framer, anim)

	log.Infof("Driving %d LEDs, %d reset events, output %s", conf.Leds, engine.Threshold(), conf.Output.Driver)

	var display lcd.Printer
	if conf.LCD.Enabled {
		if display, err = lcd.Open(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(ctx)
	})
	g.Go(func() error {
		return driver.Run(ctx)
	})
	g.Go(func() error {
		return mon.Run(ctx)
	})

	if display != nil {
		g.Go(func() error {
			return lcd.ShowStatus(ctx, display, time.Second, func() (string, string) {
				st := engine.Stats()
				return fmt.Sprintf("%d LEDs %s", st.Leds, conf.Output.Driver), fmt.Sprintf("F%d D%d", st.Frames, st.Desyncs)
			})
		})
	}

	if conf.Button.Enabled {
		events, err := button.Watch(ctx, conf.Button.Pin)
		if err != nil {
			log.Warnf("Button disabled: %v", err)
		} else {
			g.Go(func() error {
				cycleEffects(anim, button.Presses(events))
				return nil
			})
		}
	}

	anim.Sparkle(pixel.DefaultMaxBrightness)

	err = g.Wait()
	anim.Clear()
	log.Info("Done...")
	return err
}

// cycleEffects starts the next effect on every button press.
func cycleEffects(anim *animation.Animator, presses <-chan struct{}) {
	effects := []func(){
		func() { anim.Breathe(0x0000ff) },
		func() {
			go func() {
				if err := anim.Rainbow(); err != nil {
					log.Debug(err)
				}
			}()
		},
		func() { anim.Sparkle(80) },
		func() { anim.FadeAll(0xff8000, 2000) },
		func() { anim.FadeOut() },
		func() { anim.Flash(0x00ff00) },
		func() { anim.Clear() },
	}

	next := 0
	for range presses {
		log.Infof("Button pressed, starting effect %d", next)
		effects[next]()
		next = (next + 1) % len(effects)
	}
}
