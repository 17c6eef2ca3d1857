package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service fires a callback on a fixed interval while running.
// Start/Stop are synchronous controls: once Stop returns no further
// callback is made.
type Service interface {
	Start(fire func()) error
	Stop() error
	IsRunning() bool
	Interval() time.Duration
	Close()
}

// DefaultInterval is used when no custom interval is provided.
const DefaultInterval = 10 * time.Second

// controlTimeout is how long we wait for the control loop to accept a
// command and acknowledge it.
const controlTimeout = 2 * time.Second

// ErrClosed is returned by controls after Close.
var ErrClosed = errors.New("scheduler: closed")

type controlOp int

const (
	opStart controlOp = iota
	opStop
	opStatus
)

type controlMsg struct {
	op   controlOp
	fire func()
	resp chan bool
}

// schedulerService owns the ticking state inside its loop goroutine, so
// no locks are needed.
type schedulerService struct {
	interval time.Duration
	log      zerolog.Logger
	ctrl     chan controlMsg
	quit     chan struct{}
	exited   chan struct{}
	quitOnce sync.Once
}

// NewSchedulerService creates a stopped scheduler. If interval <= 0 the
// default is used. The control loop runs until Close.
func NewSchedulerService(interval time.Duration, log zerolog.Logger) Service {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &schedulerService{
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
		ctrl:     make(chan controlMsg),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	go s.loop()

	return s
}

func (s *schedulerService) Interval() time.Duration { return s.interval }

// Start begins calling fire on every tick. The first tick comes one
// interval after Start. Starting a running scheduler replaces fire.
// fire runs on the loop goroutine and must not block.
func (s *schedulerService) Start(fire func()) error {
	if fire == nil {
		return errors.New("scheduler: nil fire func")
	}
	_, err := s.control(controlMsg{op: opStart, fire: fire})
	return err
}

// Stop stops ticking. It returns once the loop has acknowledged, so no
// callback is in progress or pending afterwards.
func (s *schedulerService) Stop() error {
	_, err := s.control(controlMsg{op: opStop})
	return err
}

// IsRunning reports whether ticks are being delivered.
func (s *schedulerService) IsRunning() bool {
	running, err := s.control(controlMsg{op: opStatus})
	return err == nil && running
}

// Close stops the loop goroutine for good.
func (s *schedulerService) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.exited
}

func (s *schedulerService) control(msg controlMsg) (bool, error) {
	msg.resp = make(chan bool, 1)

	select {
	case s.ctrl <- msg:
	case <-s.exited:
		return false, ErrClosed
	case <-time.After(controlTimeout):
		return false, errors.New("scheduler: control loop not responding")
	}

	select {
	case v := <-msg.resp:
		return v, nil
	case <-time.After(controlTimeout):
		return false, errors.New("scheduler: acknowledgement timeout")
	}
}

func (s *schedulerService) loop() {
	defer close(s.exited)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	running := false
	var fire func()

	for {
		select {
		case <-s.quit:
			return

		case msg := <-s.ctrl:
			switch msg.op {
			case opStart:
				if !running {
					s.log.Info().Dur("interval", s.interval).Msg("polling started")
				}
				running = true
				fire = msg.fire
				ticker.Reset(s.interval)
				msg.resp <- true

			case opStop:
				if running {
					s.log.Info().Msg("polling stopped")
				}
				running = false
				fire = nil
				msg.resp <- true

			case opStatus:
				msg.resp <- running
			}

		case <-ticker.C:
			if !running {
				continue
			}
			s.log.Debug().Msg("tick")
			fire()
		}
	}
}
