package bus

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/callebjorkell/pixelbus/internal/pixel"
	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/callebjorkell/pixelbus/internal/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	events []stream.Event
}

func (r *recorder) Handle(ev stream.Event) {
	r.events = append(r.events, ev)
}

func TestStepAlternates(t *testing.T) {
	buf := append(bytes.Repeat([]byte{1}, 24), bytes.Repeat([]byte{2}, 24)...)
	rec := &recorder{}
	var seen [][]byte
	l := NewLoop(buf, rec, 800000, WithSinks(SinkFunc(func(codes []byte) {
		seen = append(seen, bytes.Clone(codes))
	})))

	for i := 0; i < 4; i++ {
		l.Step()
	}

	assert.Equal(t, []stream.Event{stream.HalfDrained, stream.FullyDrained, stream.HalfDrained, stream.FullyDrained}, rec.events)
	require.Len(t, seen, 4)
	assert.Equal(t, buf[:24], seen[0])
	assert.Equal(t, buf[24:], seen[1])
	assert.Equal(t, buf[:24], seen[2])
	assert.Equal(t, uint64(4), l.Halves())
	assert.Equal(t, 30*time.Microsecond, l.HalfPeriod())
}

func TestRunStops(t *testing.T) {
	rec := &recorder{}
	l := NewLoop(make([]byte, 48), rec, 800000, WithTick(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan error)
	go func() {
		done <- l.Run(ctx)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.NotZero(t, l.Halves())
	assert.Len(t, rec.events, int(l.Halves()))
}

func newEngine(t *testing.T) (*stream.Engine, *pixel.Store, waveform.Encoder) {
	t.Helper()
	s := pixel.NewStore(3, pixel.DefaultMaxBrightness, 3000)
	s.SetColor(0, 10, 20, 30)
	s.SetBrightness(0, 100)
	s.SetColor(1, 255, 0, 0)
	s.SetBrightness(1, 50)
	s.SetBrightness(2, 100)

	enc := waveform.NewEncoder(waveform.DefaultPeriod)
	e := stream.NewEngine(s, enc, stream.WithResetThreshold(2))
	e.Prime()
	return e, s, enc
}

func TestFramer(t *testing.T) {
	e, _, enc := newEngine(t)
	f := NewFramer(enc, 3)
	var frames [][]uint32
	f.OnFrame(func(frame []uint32) {
		frames = append(frames, frame)
	})
	l := NewLoop(e.Buffer(), e, 800000, WithSinks(f))

	for i := 0; i < 3; i++ {
		l.Step()
	}
	assert.Zero(t, f.Count())
	assert.Empty(t, f.Frame())

	l.Step()
	want := []uint32{0x0a141e, 0x7f0000, 0}
	assert.Equal(t, want, f.Frame())
	assert.Equal(t, uint64(1), f.Count())

	for i := 0; i < 6; i++ {
		l.Step()
	}
	assert.Equal(t, uint64(2), f.Count())
	assert.Equal(t, [][]uint32{want, want}, frames)
}

type fakeStreamer struct {
	streams []*gpiostream.BitStream
}

func (f *fakeStreamer) StreamOut(s gpiostream.Stream) error {
	f.streams = append(f.streams, s.(*gpiostream.BitStream))
	return nil
}

func TestGPIO(t *testing.T) {
	enc := waveform.NewEncoder(waveform.DefaultPeriod)
	out := &fakeStreamer{}
	g := NewGPIO(out, 800000, enc)

	slot := make([]byte, waveform.SlotSize)
	enc.Encode(slot, 0x80, 0, 0)
	g.Drain(slot)
	assert.Empty(t, out.streams)

	g.Drain(make([]byte, waveform.SlotSize))
	require.Len(t, out.streams, 1)
	s := out.streams[0]
	assert.Equal(t, 2400*physic.KiloHertz, s.Freq)
	assert.Equal(t, []byte{0xd2, 0x49, 0x24, 0x92, 0x49, 0x24, 0x92, 0x49, 0x24}, s.Bits)

	// further idle halves do not send anything
	g.Drain(make([]byte, waveform.SlotSize))
	assert.Len(t, out.streams, 1)
}

func TestGPIOFrameLength(t *testing.T) {
	enc := waveform.NewEncoder(waveform.DefaultPeriod)
	out := &fakeStreamer{}
	g := NewGPIO(out, 800000, enc)
	e, _, _ := newEngine(t)
	l := NewLoop(e.Buffer(), e, 800000, WithSinks(g))

	for i := 0; i < 10; i++ {
		l.Step()
	}
	require.Len(t, out.streams, 2)
	// three LEDs of 24 codes, three bits each
	assert.Len(t, out.streams[0].Bits, 3*24*3/8)
	assert.Equal(t, out.streams[0].Bits, out.streams[1].Bits)
}

type fakeWriter struct {
	writes [][]byte
	halted bool
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	f.writes = append(f.writes, bytes.Clone(p))
	return len(p), nil
}

func (f *fakeWriter) Halt() error {
	f.halted = true
	return nil
}

type fakeCloser struct {
	closed bool
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return nil
}

func TestSPI(t *testing.T) {
	w := &fakeWriter{}
	c := &fakeCloser{}
	s := NewSPI(w, c, 3)

	assert.NoError(t, s.Render([]uint32{0x010203, 0xff0000}))
	assert.NoError(t, s.Render([]uint32{1, 2, 3, 4}))
	require.Len(t, w.writes, 2)
	assert.Equal(t, []byte{1, 2, 3, 255, 0, 0, 0, 0, 0}, w.writes[0])
	assert.Equal(t, []byte{0, 0, 1, 0, 0, 2, 0, 0, 3}, w.writes[1])

	assert.NoError(t, s.Close())
	assert.True(t, w.halted)
	assert.True(t, c.closed)
}

func TestAttach(t *testing.T) {
	e, _, enc := newEngine(t)
	f := NewFramer(enc, 3)
	w := &fakeWriter{}
	Attach(f, NewSPI(w, nil, 3))
	l := NewLoop(e.Buffer(), e, 800000, WithSinks(f))

	for i := 0; i < 5; i++ {
		l.Step()
	}
	require.Len(t, w.writes, 1)
	assert.Equal(t, []byte{10, 20, 30, 127, 0, 0, 0, 0, 0}, w.writes[0])
}
