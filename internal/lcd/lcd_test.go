package lcd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

// bus records the nibbles clocked into the display.
type bus struct {
	rs    gpio.Level
	data  [4]gpio.Level
	sent  []byte
	modes []gpio.Level
}

type pin struct {
	set func(gpio.Level)
}

func (p pin) Out(l gpio.Level) error {
	p.set(l)
	return nil
}

func newDisplay(b *bus) *Display {
	d := &Display{
		registerSelection: pin{func(l gpio.Level) { b.rs = l }},
		clockEdge: pin{func(l gpio.Level) {
			if l != gpio.High {
				return
			}
			var nibble byte
			for i, v := range b.data {
				if v == gpio.High {
					nibble |= 1 << uint(i)
				}
			}
			b.sent = append(b.sent, nibble)
			b.modes = append(b.modes, b.rs)
		}},
		sleep: func(time.Duration) {},
	}
	for i := range d.dataPins {
		i := i
		d.dataPins[i] = pin{func(l gpio.Level) { b.data[i] = l }}
	}
	return d
}

// bytes joins the recorded nibbles, high nibble first.
func (b *bus) bytes() []byte {
	out := make([]byte, 0, len(b.sent)/2)
	for i := 0; i+1 < len(b.sent); i += 2 {
		out = append(out, b.sent[i]<<4|b.sent[i+1])
	}
	return out
}

func TestInit(t *testing.T) {
	b := &bus{}
	d := newDisplay(b)
	d.init()
	assert.Equal(t, []byte{0x33, 0x32, 0x28, 0x0C, 0x06, 0x01}, b.bytes())
	for _, m := range b.modes {
		assert.Equal(t, command, m)
	}
}

func TestPrintLine(t *testing.T) {
	b := &bus{}
	d := newDisplay(b)
	d.PrintLine(Line2, "frames 12")

	sent := b.bytes()
	require.Len(t, sent, 1+lineWidth)
	assert.Equal(t, byte(Line2), sent[0])
	assert.Equal(t, "frames 12       ", string(sent[1:]))
	assert.Equal(t, command, b.modes[0])
	assert.Equal(t, character, b.modes[2])

	b.sent, b.modes = nil, nil
	d.PrintLine(Line1, "this line is far too long")
	assert.Equal(t, "this line is far", string(b.bytes()[1:]))
}

func TestLineString(t *testing.T) {
	assert.Equal(t, "L1", Line1.String())
	assert.Equal(t, "L2", Line2.String())
	assert.Equal(t, "N/A", Line(0).String())
}

type recorder struct {
	mu    sync.Mutex
	lines map[Line][]string
}

func (r *recorder) PrintLine(l Line, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[l] = append(r.lines[l], msg)
}

func (r *recorder) Clear(l Line) {
	r.PrintLine(l, "")
}

func (r *recorder) get(l Line) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.lines[l]...)
}

func TestShowStatus(t *testing.T) {
	r := &recorder{lines: map[Line][]string{}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- ShowStatus(ctx, r, time.Millisecond, func() (string, string) {
			return "34 LEDs", "running"
		})
	}()

	assert.Eventually(t, func() bool {
		return len(r.get(Line2)) > 0
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// unchanged lines are not rewritten
	assert.Equal(t, []string{"34 LEDs", "  Sleeping..."}, r.get(Line1))
	assert.Equal(t, []string{"running", ""}, r.get(Line2))
}
