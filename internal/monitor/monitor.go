// Package monitor serves the state of the LED bus over HTTP: health counters as JSON and a websocket that streams
// the decoded frames and accepts fade commands.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/callebjorkell/pixelbus/internal/stream"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

type StatsSource interface {
	Stats() stream.Stats
}

type FrameSource interface {
	Frame() []uint32
	Count() uint64
}

// Fader starts a fade of LED i, or of all LEDs when i is negative.
type Fader interface {
	FadeTo(i int, color uint32, duration uint64)
}

type Server struct {
	addr     string
	stats    StatsSource
	frames   FrameSource
	fader    Fader
	interval time.Duration
	upgrader websocket.Upgrader
}

type Option func(*Server)

// WithInterval sets how often frames are pushed to websocket clients.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

func New(addr string, stats StatsSource, frames FrameSource, fader Fader, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		stats:    stats,
		frames:   frames,
		fader:    fader,
		interval: 100 * time.Millisecond,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Infof("Monitor listening on %s", s.addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("monitor stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type Health struct {
	Status  string `json:"status"`
	Leds    int    `json:"leds"`
	Phase   string `json:"phase"`
	Cursor  int    `json:"cursor"`
	Frames  uint64 `json:"frames"`
	Desyncs uint64 `json:"desyncs"`
	Decoded uint64 `json:"decoded"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := s.stats.Stats()
	h := Health{
		Status:  "ok",
		Leds:    st.Leds,
		Phase:   st.Phase.String(),
		Cursor:  st.Cursor,
		Frames:  st.Frames,
		Desyncs: st.Desyncs,
		Decoded: s.frames.Count(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		log.Warnf("Could not write health: %v", err)
	}
}

// Frame is what websocket clients receive.
type Frame struct {
	Count uint64   `json:"count"`
	Leds  []string `json:"leds"`
}

// Command is what websocket clients send. Led -1 addresses every LED.
type Command struct {
	Led      int    `json:"led"`
	Color    string `json:"color"`
	Duration uint64 `json:"duration_ms"`
}

// Parse validates the command against a strip of n LEDs and returns the color.
func (c Command) Parse(n int) (uint32, error) {
	if c.Led < -1 || c.Led >= n {
		return 0, fmt.Errorf("led %d is out of range", c.Led)
	}
	if len(c.Color) != 6 {
		return 0, fmt.Errorf("color must be six hex digits, got %q", c.Color)
	}
	v, err := strconv.ParseUint(c.Color, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", c.Color, err)
	}
	return uint32(v), nil
}

func (s *Server) frame() Frame {
	colors := s.frames.Frame()
	f := Frame{
		Count: s.frames.Count(),
		Leds:  make([]string, len(colors)),
	}
	for i, c := range colors {
		f.Leds[i] = fmt.Sprintf("%06x", c)
	}
	return f
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("Websocket upgrade failed: %v", err)
		return
	}
	log.Debugf("Websocket client %s connected", conn.RemoteAddr())

	done := make(chan struct{})
	go s.writeFrames(conn, done)
	s.readCommands(conn)
	close(done)
}

func (s *Server) writeFrames(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s.frame()); err != nil {
				log.Debugf("Websocket write failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) readCommands(conn *websocket.Conn) {
	leds := s.stats.Stats().Leds
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("Websocket read failed: %v", err)
			}
			return
		}
		var c Command
		if err := json.Unmarshal(msg, &c); err != nil {
			log.Warnf("Ignoring malformed command: %v", err)
			continue
		}
		color, err := c.Parse(leds)
		if err != nil {
			log.Warnf("Ignoring command: %v", err)
			continue
		}
		log.Debugf("Fading LED %d to %06x over %dms", c.Led, color, c.Duration)
		s.fader.FadeTo(c.Led, color, c.Duration)
	}
}
