// room/room.go
package room

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/game"
	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/state"
)

// NoSeat marks a player who has not picked a seat yet.
const NoSeat = 0

// MaxSeats is the table size. Seats are numbered 1..MaxSeats.
const MaxSeats = 5

// Player is one identity sitting in a room.
type Player struct {
	Identity      string
	DisplayLabel  string
	Seat          int
	ShotCount     int
	SurvivalCount int
}

// View converts the player to its wire form.
func (p Player) View() network.PlayerView {
	v := network.PlayerView{
		WalletAddress: p.Identity,
		ShortAddress:  p.DisplayLabel,
		ShotCount:     p.ShotCount,
		SurvivalCount: p.SurvivalCount,
	}
	if p.Seat != NoSeat {
		seat := p.Seat
		v.SeatNumber = &seat
	}
	return v
}

// Options are the rules a room is created with.
type Options struct {
	MaxPlayers   int
	LobbySeconds int
	RoundSeconds int
	ResetDelay   time.Duration
	Cooldown     time.Duration
}

// DefaultOptions returns the standard rules: five seats, 30 second lobby and
// rounds, a 5 second result screen and a 10 minute ban.
func DefaultOptions() Options {
	return Options{
		MaxPlayers:   5,
		LobbySeconds: 30,
		RoundSeconds: 30,
		ResetDelay:   5 * time.Second,
		Cooldown:     10 * time.Minute,
	}
}

// Dependencies are the collaborators a room talks to. Nil fields get no-op defaults,
// except Timers which is required.
type Dependencies struct {
	Broadcaster Broadcaster
	Cooldowns   *cooldown.Store
	Timers      Timers
	Spinner     *game.Spinner
	Observer    Observer
	Members     Membership
	Now         func() time.Time
}

// Snapshot is a consistent copy of a room's state.
type Snapshot struct {
	ID            string
	Players       []Player
	Status        state.Status
	TimeRemaining int
	LastUpdated   time.Time
}

// View converts the snapshot to a room:update message.
func (s Snapshot) View() network.RoomUpdate {
	players := make([]network.PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p.View())
	}
	return network.RoomUpdate{
		RoomID:        s.ID,
		Players:       players,
		Status:        s.Status.String(),
		TimeRemaining: s.TimeRemaining,
	}
}

type messageKind int

const (
	msgTick messageKind = iota
	msgCall
	msgReset
)

type message struct {
	kind       messageKind
	fn         func() error
	done       chan error
	generation uint64
}

// Room is one game table.
//
// All state below the inbox is owned by the room goroutine: ticks, intents and
// the delayed reset arrive through one FIFO inbox and are applied one at a time.
type Room struct {
	ID string

	opts         Options
	broadcaster  Broadcaster
	cooldowns    *cooldown.Store
	timers       Timers
	spinner      *game.Spinner
	observer     Observer
	members      Membership
	now          func() time.Time
	stateMachine state.StateMachine

	inbox       chan message
	tickPending atomic.Bool
	closeChan   chan struct{}
	closeOnce   sync.Once

	players       []*Player
	timeRemaining int
	lastUpdated   time.Time
	resetTimer    int64
	generation    uint64
}

// NewRoom builds a room and starts its goroutine.
func NewRoom(id string, opts Options, deps Dependencies) *Room {
	if deps.Timers == nil {
		panic("room: Dependencies.Timers is required")
	}
	if opts.MaxPlayers <= 0 || opts.MaxPlayers > MaxSeats {
		opts.MaxPlayers = MaxSeats
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}
	if deps.Cooldowns == nil {
		deps.Cooldowns = cooldown.NewStore()
	}
	if deps.Spinner == nil {
		deps.Spinner = game.NewSpinner(nil, game.DefaultEliminationChance)
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Members == nil {
		deps.Members = nopMembership{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Room{
		ID:          id,
		opts:        opts,
		broadcaster: deps.Broadcaster,
		cooldowns:   deps.Cooldowns,
		timers:      deps.Timers,
		spinner:     deps.Spinner,
		observer:    deps.Observer,
		members:     deps.Members,
		now:         deps.Now,
		inbox:       make(chan message, 64),
		closeChan:   make(chan struct{}),
		players:     make([]*Player, 0, opts.MaxPlayers),
		lastUpdated: deps.Now(),
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	r.stateMachine = state.NewRoundMachine(state.NewWaitingState(r))

	go r.loop()
	return r
}

// --- 实现 state.RoomContext 接口 ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) Rules() state.Rules {
	return state.Rules{
		LobbySeconds: r.opts.LobbySeconds,
		RoundSeconds: r.opts.RoundSeconds,
		MinPlayers:   2,
	}
}

func (r *Room) PlayerCount() int {
	return len(r.players)
}

func (r *Room) TimeRemaining() int {
	return r.timeRemaining
}

func (r *Room) SetTimeRemaining(seconds int) {
	r.timeRemaining = seconds
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	from := r.stateMachine.GetCurrentState().GetID()
	if err := r.stateMachine.ChangeState(newState); err != nil {
		return fmt.Errorf("room %s: %s -> %s: %w", r.ID, from, newState.GetID(), err)
	}
	r.touch()
	logger.Log.Debugf("room %s: %s -> %s", r.ID, from, newState.GetID())
	return nil
}

// Broadcast hands msg to the transport. Delivery failures never undo state.
func (r *Room) Broadcast(msg network.Message) {
	if err := r.broadcaster.BroadcastToRoom(r.ID, msg); err != nil {
		logger.Log.Debugf("room %s: broadcast %s failed: %v", r.ID, msg.Event(), err)
	}
}

func (r *Room) BroadcastState() {
	r.Broadcast(r.snapshot().View())
}

func (r *Room) Spin() (*network.PlayerView, bool) {
	if len(r.players) == 0 {
		return nil, false
	}

	outcome := r.spinner.Spin(len(r.players))
	r.observer.SpinCompleted(r.ID, outcome.Eliminated)
	if !outcome.Eliminated {
		logger.Log.Infof("room %s: revolver spun, no shot", r.ID)
		r.Broadcast(network.RevolverSpin{RoomID: r.ID, Result: network.ResultNoShot})
		return nil, false
	}

	target := r.players[outcome.Target]
	target.ShotCount++
	r.cooldowns.Block(target.Identity, r.opts.Cooldown)
	r.removeAt(outcome.Target)
	logger.Log.Infof("room %s: %s was shot, %d players left", r.ID, target.Identity, len(r.players))

	r.Broadcast(network.PlayerShot{RoomID: r.ID, Player: target.View()})
	r.BroadcastState()

	if len(r.players) == 1 {
		return r.CrownSurvivor(), true
	}
	return nil, false
}

func (r *Room) CrownSurvivor() *network.PlayerView {
	if len(r.players) != 1 {
		return nil
	}
	winner := r.players[0]
	winner.SurvivalCount++
	r.touch()
	view := winner.View()
	return &view
}

func (r *Room) FinishRound(winner *network.PlayerView) {
	r.observer.RoundFinished(r.ID, winner != nil)
	if winner != nil {
		logger.Log.Infof("room %s: round over, winner %s", r.ID, winner.WalletAddress)
	} else {
		logger.Log.Infof("room %s: round over, no winner", r.ID)
	}

	r.CancelReset()
	generation := r.generation
	r.resetTimer = r.timers.AddTimer(r.opts.ResetDelay, 0, func() {
		r.enqueue(message{kind: msgReset, generation: generation})
	})
}

func (r *Room) CancelReset() {
	if r.resetTimer != 0 {
		r.timers.RemoveTimer(r.resetTimer)
		r.resetTimer = 0
	}
	// A reset already handed to the inbox carries the old generation and is dropped.
	r.generation++
}

// --- public API, safe from any goroutine ---

// Tick asks the room to advance one second. It never blocks: if the previous
// tick has not been processed yet the new one is dropped and false is returned.
func (r *Room) Tick() bool {
	if !r.tickPending.CompareAndSwap(false, true) {
		return false
	}
	select {
	case r.inbox <- message{kind: msgTick}:
		return true
	default:
		r.tickPending.Store(false)
		return false
	}
}

// Join adds identity with an empty seat.
func (r *Room) Join(identity, label string) error {
	return r.call(func() error { return r.join(identity, label) })
}

// SelectSeat assigns seat to a player already in the room.
func (r *Room) SelectSeat(identity string, seat int) error {
	return r.call(func() error { return r.selectSeat(identity, seat) })
}

// Leave removes identity if present and broadcasts the room either way.
func (r *Room) Leave(identity string) error {
	return r.call(func() error {
		r.leave(identity)
		return nil
	})
}

// Seed places a complete player, counters included, as demo data.
func (r *Room) Seed(p Player) error {
	return r.call(func() error {
		if err := r.join(p.Identity, p.DisplayLabel); err != nil {
			return err
		}
		if p.Seat != NoSeat {
			if err := r.selectSeat(p.Identity, p.Seat); err != nil {
				r.leave(p.Identity)
				return err
			}
		}
		seeded := r.players[r.find(p.Identity)]
		seeded.ShotCount = p.ShotCount
		seeded.SurvivalCount = p.SurvivalCount
		r.BroadcastState()
		return nil
	})
}

// Snapshot returns a copy of the current state.
func (r *Room) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := r.call(func() error {
		snap = r.snapshot()
		return nil
	})
	return snap, err
}

// Close stops the room goroutine and drops any pending reset.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// --- room goroutine ---

func (r *Room) call(fn func() error) error {
	done := make(chan error, 1)
	if !r.enqueue(message{kind: msgCall, fn: fn, done: done}) {
		return ErrRoomClosed
	}
	select {
	case err := <-done:
		return err
	case <-r.closeChan:
		return ErrRoomClosed
	}
}

func (r *Room) enqueue(msg message) bool {
	select {
	case r.inbox <- msg:
		return true
	case <-r.closeChan:
		return false
	}
}

// loop 是房间的主循环
func (r *Room) loop() {
	for {
		select {
		case msg := <-r.inbox:
			r.handle(msg)
		case <-r.closeChan:
			if r.resetTimer != 0 {
				r.timers.RemoveTimer(r.resetTimer)
			}
			return
		}
	}
}

func (r *Room) handle(msg message) {
	if msg.kind == msgTick {
		defer r.tickPending.Store(false)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("room %s: recovered from panic: %v", r.ID, p)
			if msg.done != nil {
				msg.done <- fmt.Errorf("room %s: internal error", r.ID)
			}
		}
	}()

	switch msg.kind {
	case msgTick:
		r.update()
	case msgCall:
		msg.done <- msg.fn()
	case msgReset:
		r.reset(msg.generation)
	}
}

// update 由主循环调用，驱动状态机更新
func (r *Room) update() {
	r.stateMachine.GetCurrentState().OnUpdate()
	r.touch()
}

func (r *Room) reset(generation uint64) {
	if generation != r.generation || r.status() != state.StatusFinished {
		return
	}
	r.resetTimer = 0

	for _, p := range r.players {
		r.members.Release(p.Identity, r.ID)
	}
	r.players = r.players[:0]
	r.observer.PlayersChanged(r.ID, 0)

	if err := r.ChangeState(state.NewWaitingState(r)); err != nil {
		logger.Log.Errorf("room %s: reset: %v", r.ID, err)
		return
	}
	logger.Log.Infof("room %s: reset to waiting", r.ID)
	r.Broadcast(network.RoomReset{RoomID: r.ID})
	r.BroadcastState()
}

func (r *Room) join(identity, label string) error {
	if !r.stateMachine.GetCurrentState().AcceptsIntents() {
		return ErrGameFinished
	}
	if remaining := r.cooldowns.Remaining(identity); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	if len(r.players) >= r.opts.MaxPlayers {
		return ErrRoomFull
	}
	if r.find(identity) >= 0 {
		return ErrAlreadyJoined
	}
	if err := r.members.Claim(identity, r.ID); err != nil {
		return err
	}

	r.players = append(r.players, &Player{Identity: identity, DisplayLabel: label})
	r.touch()
	r.observer.PlayersChanged(r.ID, len(r.players))
	logger.Log.Infof("room %s: %s joined (%d/%d)", r.ID, identity, len(r.players), r.opts.MaxPlayers)
	r.BroadcastState()
	return nil
}

func (r *Room) selectSeat(identity string, seat int) error {
	if !r.stateMachine.GetCurrentState().AcceptsIntents() {
		return ErrGameFinished
	}
	idx := r.find(identity)
	if idx < 0 {
		return ErrNotAuthenticated
	}
	if seat < 1 || seat > MaxSeats {
		return ErrInvalidSeat
	}
	for i, p := range r.players {
		if i != idx && p.Seat == seat {
			return ErrSeatTaken
		}
	}

	r.players[idx].Seat = seat
	r.touch()
	r.BroadcastState()
	return nil
}

func (r *Room) leave(identity string) {
	if idx := r.find(identity); idx >= 0 {
		r.removeAt(idx)
		logger.Log.Infof("room %s: %s left", r.ID, identity)
	}
	r.BroadcastState()
}

func (r *Room) removeAt(idx int) {
	p := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.members.Release(p.Identity, r.ID)
	r.touch()
	r.observer.PlayersChanged(r.ID, len(r.players))
}

func (r *Room) find(identity string) int {
	for i, p := range r.players {
		if p.Identity == identity {
			return i
		}
	}
	return -1
}

func (r *Room) status() state.Status {
	return r.stateMachine.GetCurrentState().Status()
}

func (r *Room) snapshot() Snapshot {
	players := make([]Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return Snapshot{
		ID:            r.ID,
		Players:       players,
		Status:        r.status(),
		TimeRemaining: r.timeRemaining,
		LastUpdated:   r.lastUpdated,
	}
}

func (r *Room) touch() {
	r.lastUpdated = r.now()
}
