package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{}

func (fakeStats) Stats() stream.Stats {
	return stream.Stats{Frames: 12, Desyncs: 1, Cursor: 3, Phase: stream.ResetData, Leds: 4}
}

type fakeFrames struct{}

func (fakeFrames) Frame() []uint32 {
	return []uint32{0xff0000, 0x00ff00, 0x0000ff, 0}
}

func (fakeFrames) Count() uint64 {
	return 11
}

type fade struct {
	led      int
	color    uint32
	duration uint64
}

type fakeFader struct {
	mu    sync.Mutex
	fades []fade
}

func (f *fakeFader) FadeTo(i int, color uint32, duration uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fades = append(f.fades, fade{i, color, duration})
}

func (f *fakeFader) get() []fade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fade{}, f.fades...)
}

func newServer(t *testing.T) (*httptest.Server, *fakeFader) {
	t.Helper()
	fader := &fakeFader{}
	s := New(":0", fakeStats{}, fakeFrames{}, fader, WithInterval(5*time.Millisecond))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, fader
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, Health{
		Status:  "ok",
		Leds:    4,
		Phase:   "reset-data",
		Cursor:  3,
		Frames:  12,
		Desyncs: 1,
		Decoded: 11,
	}, h)

	resp, err = http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebsocket(t *testing.T) {
	srv, fader := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, Frame{Count: 11, Leds: []string{"ff0000", "00ff00", "0000ff", "000000"}}, f)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(Command{Led: 9, Color: "ffffff"}))
	require.NoError(t, conn.WriteJSON(Command{Led: 2, Color: "102030", Duration: 500}))
	require.NoError(t, conn.WriteJSON(Command{Led: -1, Color: "ABCDEF"}))

	assert.Eventually(t, func() bool {
		return len(fader.get()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []fade{{2, 0x102030, 500}, {-1, 0xabcdef, 0}}, fader.get())
}

func TestCommandParse(t *testing.T) {
	tt := []struct {
		name    string
		command Command
		color   uint32
		fails   bool
	}{
		{"single led", Command{Led: 0, Color: "ff8000"}, 0xff8000, false},
		{"all leds", Command{Led: -1, Color: "000001"}, 1, false},
		{"last led", Command{Led: 3, Color: "00ff00"}, 0x00ff00, false},
		{"past the end", Command{Led: 4, Color: "00ff00"}, 0, true},
		{"below all", Command{Led: -2, Color: "00ff00"}, 0, true},
		{"short color", Command{Led: 0, Color: "fff"}, 0, true},
		{"not hex", Command{Led: 0, Color: "zzzzzz"}, 0, true},
		{"signed", Command{Led: 0, Color: "+fffff"}, 0, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.command.Parse(4)
			if tc.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.color, c)
		})
	}
}
