package animation

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Queue shares the LEDs between effects, some of which run for a long time. An effect that wants the LEDs queues
// up, which marks the queue as interrupted. A running effect that sees the interruption SHOULD return and let the
// queued one continue.
type Queue struct {
	waiting       int
	runLock       sync.Mutex
	interruptLock sync.Mutex
}

type Unlocker func()

// Queue interrupts the current owner and waits for the run lock.
func (q *Queue) Queue() Unlocker {
	q.interrupt()
	q.runLock.Lock()

	q.running()
	return func() {
		q.done()
	}
}

func (q *Queue) running() {
	q.interruptLock.Lock()
	defer q.interruptLock.Unlock()

	q.waiting--
}

func (q *Queue) interrupt() {
	q.interruptLock.Lock()
	defer q.interruptLock.Unlock()

	q.waiting++
	log.Debug("Added to queue: ", q.waiting)
}

func (q *Queue) IsInterrupted() bool {
	q.interruptLock.Lock()
	defer q.interruptLock.Unlock()

	return q.waiting != 0
}

func (q *Queue) done() {
	defer q.runLock.Unlock()

	log.Debug("Marked done. Currently waiting: ", q.waiting)
	if q.waiting < 0 {
		log.Warn(errors.New("number waiting in queue less than zero"))
	}
}
