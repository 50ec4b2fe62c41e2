package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/models"
	"github.com/wfunc/roulette/network"
)

const storeTimeout = 5 * time.Second

var (
	ErrRecorderFull   = errors.New("recorder queue full")
	ErrRecorderClosed = errors.New("recorder closed")
)

type roomEvent struct {
	roomID string
	msg    network.Message
	at     time.Time
}

// Recorder sits next to the session broadcaster and turns room events into
// history rows. Writes happen on one worker goroutine; rooms never wait on the store.
type Recorder struct {
	store  Store
	events chan roomEvent
	now    func() time.Time

	// eliminated is only touched by the worker.
	eliminated map[string][]string

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewRecorder(store Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		store:      store,
		events:     make(chan roomEvent, buffer),
		now:        time.Now,
		eliminated: make(map[string][]string),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// BroadcastToRoom queues the events that matter for history and ignores the rest.
func (r *Recorder) BroadcastToRoom(roomID string, msg network.Message) error {
	switch msg.(type) {
	case network.GameStart, network.PlayerShot, network.GameEnd:
	default:
		return nil
	}

	select {
	case <-r.stop:
		return ErrRecorderClosed
	default:
	}
	select {
	case r.events <- roomEvent{roomID: roomID, msg: msg, at: r.now()}:
		return nil
	default:
		logger.Log.Warnf("recorder: queue full, dropping %s for room %s", msg.Event(), roomID)
		return ErrRecorderFull
	}
}

// Start launches the worker. Calling it twice has no effect.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		select {
		case ev := <-r.events:
			r.apply(ev)
		case <-r.stop:
			for {
				select {
				case ev := <-r.events:
					r.apply(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) apply(ev roomEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	switch msg := ev.msg.(type) {
	case network.GameStart:
		delete(r.eliminated, ev.roomID)
	case network.PlayerShot:
		r.eliminated[ev.roomID] = append(r.eliminated[ev.roomID], msg.Player.WalletAddress)
		shot := models.ShotRecord{RoomID: ev.roomID, Identity: msg.Player.WalletAddress, ShotAt: ev.at}
		if err := r.store.RecordShot(ctx, shot); err != nil {
			logger.Log.Errorf("recorder: save shot in room %s: %v", ev.roomID, err)
		}
	case network.GameEnd:
		round := models.RoundRecord{
			RoomID:     ev.roomID,
			Eliminated: r.eliminated[ev.roomID],
			EndedAt:    ev.at,
		}
		if msg.Winner != nil {
			round.Winner = msg.Winner.WalletAddress
		}
		delete(r.eliminated, ev.roomID)
		if err := r.store.RecordRound(ctx, round); err != nil {
			logger.Log.Errorf("recorder: save round in room %s: %v", ev.roomID, err)
		}
	}
}

// Close stops accepting events, flushes the queue and waits for the worker.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
	})
	r.Start()
	<-r.done
}
