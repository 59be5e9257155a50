package animation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/callebjorkell/pixelbus/internal/fade"
	"github.com/callebjorkell/pixelbus/internal/pixel"
	log "github.com/sirupsen/logrus"
)

// Animator runs one effect at a time on the pixel store. Starting an effect interrupts the one that is running.
type Animator struct {
	store *pixel.Store
	fades *fade.Engine
	clock Clock
	queue Queue
	frame time.Duration
	rnd   *rand.Rand
}

type Option func(*Animator)

// WithFrameInterval sets the step time of the frame based effects.
func WithFrameInterval(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.frame = d
		}
	}
}

func WithRand(r *rand.Rand) Option {
	return func(a *Animator) {
		a.rnd = r
	}
}

func NewAnimator(fades *fade.Engine, clock Clock, opts ...Option) *Animator {
	a := &Animator{
		store: fades.Store(),
		fades: fades,
		clock: clock,
		frame: 10 * time.Millisecond,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Animator) setColor(color uint32, brightness uint8) {
	r, g, b := pixel.Unpack(color)
	a.store.Fill(r, g, b, brightness)
}

func (a *Animator) clear() {
	a.fades.Cancel()
	a.store.Fill(0, 0, 0, 0)
}

// Clear stops whatever is running and turns all LEDs off.
func (a *Animator) Clear() {
	done := a.queue.Queue()
	defer done()

	log.Debug("Clearing LEDs")
	a.clear()
}

// Stop waits for the running effect to give up the LEDs and leaves them as they are.
func (a *Animator) Stop() {
	done := a.queue.Queue()
	done()
}

func (a *Animator) Flash(color uint32) {
	done := a.queue.Queue()
	defer done()

	log.Infof("Flashing color %06x", color)
	a.fades.Cancel()
	full := a.store.MaxBrightness()

	a.setColor(color, full)
	<-time.After(250 * time.Millisecond)
	a.setColor(0, 0)
	<-time.After(40 * time.Millisecond)
	a.setColor(color, full)
	<-time.After(100 * time.Millisecond)
	a.setColor(0, 0)
	<-time.After(40 * time.Millisecond)
	a.setColor(color, full)
	<-time.After(100 * time.Millisecond)
	a.setColor(0, 0)

	log.Debug("Flashing done...")
}

// Rainbow runs a hue wheel along the strip, fading in and out at the ends.
func (a *Animator) Rainbow() error {
	done := a.queue.Queue()
	defer done()
	defer a.clear()

	log.Debugf("Displaying rainbow")
	a.fades.Cancel()
	tick := time.NewTicker(3 * a.frame)
	defer tick.Stop()

	n := a.store.Len()
	full := int(a.store.MaxBrightness())
	for step := 0; step <= 450; step++ {
		if a.queue.IsInterrupted() {
			return fmt.Errorf("animation was interrupted")
		}

		light := full
		if step < 50 {
			light = step * 2 * full / 100
		}
		if step > 350 {
			light = (450 - step) * full / 100
		}

		for i := 0; i < n; i++ {
			r, g, b := pixel.Unpack(wheel(2*step + i*360/n))
			a.store.SetColor(i, r, g, b)
			a.store.SetBrightness(i, uint8(light))
		}

		<-tick.C
	}

	return nil
}

// Breathe pulses color until another effect takes over.
func (a *Animator) Breathe(color uint32) {
	done := a.queue.Queue()
	a.fades.Cancel()

	go func() {
		defer done()
		defer a.clear()
		for {
			err := a.singleBreath(color)
			if err != nil {
				log.Debug("Stopping breathing: ", err)
				break
			}
		}
	}()
}

func (a *Animator) singleBreath(color uint32) error {
	light := uint8(0)
	increase := true
	full := a.store.MaxBrightness()
	log.Debugf("Breathing color: %06x", color)
	tick := time.NewTicker(a.frame)
	defer tick.Stop()
	for {
		if a.queue.IsInterrupted() {
			log.Debug("Animation interrupted.")
			return fmt.Errorf("animation is interrupted")
		}

		a.setColor(color, light)

		if increase {
			light++
			if light >= full {
				increase = false
			}
		} else {
			if light == 0 {
				break
			}
			light--
		}

		<-tick.C
	}
	return nil
}

// FadeAll moves every LED to color over duration milliseconds. The fade itself is run by the driver.
func (a *Animator) FadeAll(color uint32, duration uint64) {
	done := a.queue.Queue()
	defer done()

	log.Debugf("Fading to %06x over %dms", color, duration)
	a.FadeTo(-1, color, duration)
}

// FadeTo fades a single LED, or all of them when i is negative, without taking the LEDs from a running effect.
func (a *Animator) FadeTo(i int, color uint32, duration uint64) {
	r, g, b := pixel.Unpack(color)
	now := a.clock.Now()
	if i >= 0 {
		a.fadeOne(i, r, g, b, duration, now)
		return
	}
	for i := 0; i < a.store.Len(); i++ {
		a.fadeOne(i, r, g, b, duration, now)
	}
}

func (a *Animator) fadeOne(i int, r, g, b uint8, duration, now uint64) {
	if a.store.Get(i).Brightness == 0 {
		a.store.SetBrightness(i, a.store.MaxBrightness())
	}
	a.fades.SetNextColor(i, r, g, b, duration, now)
}

// FadeOut lets the brightness of every LED decay to zero.
func (a *Animator) FadeOut() {
	done := a.queue.Queue()
	defer done()

	log.Debug("Fading out")
	now := a.clock.Now()
	for i := 0; i < a.store.Len(); i++ {
		a.store.SetBrightness(i, a.store.Get(i).Brightness)
		a.store.SetNextFadeTime(i, now)
	}
	a.store.EnableFade()
}

// Sparkle gives every LED a random color at the given brightness and lets it fade out.
func (a *Animator) Sparkle(brightness uint8) {
	done := a.queue.Queue()
	defer done()

	log.Debugf("Sparkling at %d%%", brightness)
	a.fades.Cancel()
	now := a.clock.Now()
	for i := 0; i < a.store.Len(); i++ {
		a.store.Randomize(i, brightness, a.rnd)
		a.store.SetNextFadeTime(i, now)
	}
	a.store.EnableFade()
}
