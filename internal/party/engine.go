package party

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"aimtrainer/backend/internal/hub"

	"github.com/rs/zerolog"
)

const persistTimeout = 10 * time.Second

// Emitter is the part of the transport the engine talks to.
type Emitter interface {
	Emit(connID string, event hub.Event)
	EmitRoom(room string, event hub.Event, except ...string)
	Join(connID, room string)
	Leave(connID, room string)
}

// Settings are the timings and limits of the coordination engine.
type Settings struct {
	DisconnectGrace           time.Duration
	CountdownSeconds          int
	ChallengeCountdownSeconds int
	SpectatorDelay            time.Duration
	MaxSpectators             int
}

func DefaultSettings() Settings {
	return Settings{
		DisconnectGrace:           30 * time.Second,
		CountdownSeconds:          3,
		ChallengeCountdownSeconds: 5,
		SpectatorDelay:            2 * time.Second,
		MaxSpectators:             20,
	}
}

type Option func(*Engine)

func WithSettings(s Settings) Option {
	return func(e *Engine) { e.cfg = s }
}

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

func WithStore(s ResultStore) Option {
	return func(e *Engine) { e.store = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "party").Logger() }
}

type handlerFunc func(c *hub.Client, payload json.RawMessage) error

// Engine is the server-authoritative party coordinator. Every inbound event
// and every timer callback runs under one mutex, so each handler observes
// and mutates the registry as a single atomic step.
type Engine struct {
	mu sync.Mutex

	reg      *Registry
	out      Emitter
	sched    Scheduler
	store    ResultStore
	log      zerolog.Logger
	cfg      Settings
	handlers map[string]handlerFunc
	shuffle  func(n int, swap func(i, j int))

	timers   map[string]*timerEntry
	timerSeq uint64

	// conns lists the live connections of each user, newest last. The newest
	// one acts for the user.
	conns  map[string][]string
	closed bool
	saves  sync.WaitGroup
}

func NewEngine(out Emitter, opts ...Option) *Engine {
	e := &Engine{
		reg:     NewRegistry(),
		out:     out,
		sched:   SystemScheduler(),
		store:   NopStore{},
		log:     zerolog.Nop(),
		cfg:     DefaultSettings(),
		shuffle: rand.Shuffle,
		timers:  make(map[string]*timerEntry),
		conns:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[string]handlerFunc{
		EventCreate:          e.handleCreate,
		EventJoin:            e.handleJoin,
		EventLeave:           e.handleLeave,
		EventReady:           e.handleReady,
		EventStartGame:       e.handleStartGame,
		EventGameUpdate:      e.handleGameUpdate,
		EventEndGame:         e.handleEndGame,
		EventSpectatorJoin:   e.handleSpectatorJoin,
		EventSpectatorLeave:  e.handleSpectatorLeave,
		EventCameraUpdate:    e.handleCameraUpdate,
		EventSpectatorChat:   e.handleSpectatorChat,
		EventCreateChallenge: e.handleCreateChallenge,
		EventFormTeams:       e.handleFormTeams,
		EventStartChallenge:  e.handleStartChallenge,
		EventObjective:       e.handleObjectiveProgress,
		EventTeamChat:        e.handleTeamChat,
		EventTeamSwitch:      e.handleTeamSwitch,
	}
	return e
}

// OnConnect greets the connection and resumes its party membership if the
// user was inside its disconnect grace window.
func (e *Engine) OnConnect(c *hub.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.out.Emit(c.ID, hub.Event{Type: EventConnectionReady, Payload: ConnectionReady{
		ConnectionID: c.ID,
		UserID:       c.Identity.UserID,
		Username:     c.Identity.Username,
		IsGuest:      c.Identity.IsGuest,
	}})
	if c.Identity.UserID == "" || e.closed {
		return
	}
	e.conns[c.Identity.UserID] = append(e.conns[c.Identity.UserID], c.ID)
	e.guard("connect", func() { e.resume(c) })
}

// OnDisconnect drops spectators immediately and starts the grace period for
// members. Closing a superseded connection changes nothing; closing the
// acting one hands the user back to its newest remaining connection.
func (e *Engine) OnDisconnect(c *hub.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	uid := c.Identity.UserID
	if uid == "" || e.closed {
		return
	}
	live := e.conns[uid]
	i := slices.Index(live, c.ID)
	if i < 0 {
		return
	}
	acting := i == len(live)-1
	live = slices.Delete(live, i, i+1)
	if len(live) == 0 {
		delete(e.conns, uid)
	} else {
		e.conns[uid] = live
	}
	if !acting {
		return
	}
	if len(live) > 0 {
		e.guard("disconnect", func() { e.handOver(uid, live[len(live)-1]) })
		return
	}

	e.guard("disconnect", func() {
		if _, ok := e.reg.SpectatingOf(uid); ok {
			e.stopSpectating(uid, "")
		}
		e.suspend(uid)
	})
}

// OnMessage dispatches one inbound event. Failures are reported only to the
// sending connection.
func (e *Engine) OnMessage(c *hub.Client, msg hub.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.dispatch(c, msg); err != nil {
		e.reject(c, msg.Type, err)
	}
}

func (e *Engine) dispatch(c *hub.Client, msg hub.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("event", msg.Type).
				Str("conn_id", c.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("event handler panicked")
			err = errInternal
		}
	}()

	if e.closed {
		return errUnavailable
	}
	handler, ok := e.handlers[msg.Type]
	if !ok {
		return newError(CodeUnknownEvent, "Unknown event: "+msg.Type)
	}
	if c.Identity.UserID == "" {
		if strings.HasPrefix(msg.Type, "spectator:") {
			return errUserIDRequired
		}
		return errAuthRequired
	}
	return handler(c, msg.Payload)
}

func (e *Engine) reject(c *hub.Client, eventType string, err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		e.log.Error().Err(err).Str("event", eventType).Str("conn_id", c.ID).Msg("event failed")
		pe = errInternal
	}
	e.log.Debug().
		Str("event", eventType).
		Str("user_id", c.Identity.UserID).
		Str("code", string(pe.Code)).
		Msg("event rejected")
	e.out.Emit(c.ID, hub.Event{Type: EventError, Payload: pe})
}

// guard runs fn and logs a panic instead of letting it escape a timer or
// connection callback.
func (e *Engine) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("callback", what).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("engine callback panicked")
		}
	}()
	fn()
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return newError(CodeInvalidPayload, "Malformed event payload")
	}
	return nil
}

// toParty broadcasts to the members of a party and to its spectators.
// Spectators get the viewer form of party and game snapshots.
func (e *Engine) toParty(partyID, eventType string, payload interface{}, except ...string) {
	e.out.EmitRoom(partyRoom(partyID), hub.Event{Type: eventType, Payload: payload}, except...)
	e.out.EmitRoom(viewerRoom(partyID), hub.Event{Type: eventType, Payload: forViewers(payload)}, except...)
}

func forViewers(payload interface{}) interface{} {
	switch v := payload.(type) {
	case Party:
		return v.ForViewer()
	case GameStarted:
		v.Game = v.Game.Clone()
		v.Game.hideStats()
		return v
	}
	return payload
}

func (e *Engine) emit(connID, eventType string, payload interface{}) {
	e.out.Emit(connID, hub.Event{Type: eventType, Payload: payload})
}

// connOf returns the connection acting for userID.
func (e *Engine) connOf(userID string) (string, bool) {
	live := e.conns[userID]
	if len(live) == 0 {
		return "", false
	}
	return live[len(live)-1], true
}

// persist hands a result to the store on its own goroutine. It must only be
// called after the outcome has been broadcast.
func (e *Engine) persist(kind string, save func(ctx context.Context) error) {
	e.saves.Add(1)
	go func() {
		defer e.saves.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := save(ctx); err != nil {
			e.log.Error().Err(err).Str("result", kind).Msg("failed to persist result")
		}
	}()
}

// Party returns a snapshot of the party.
func (e *Engine) Party(partyID string) (Party, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.reg.Get(partyID)
	if !ok {
		return Party{}, false
	}
	return p.Clone(), true
}

// PublicParties lists public parties that can still be joined.
func (e *Engine) PublicParties() []Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Summaries()
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.reg.Stats()
	for _, live := range e.conns {
		s.Connections += len(live)
	}
	return s
}

// Close stops every timer and waits for pending result writes. Events
// received afterwards are answered with PARTY_SYSTEM_UNAVAILABLE.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	for key := range e.timers {
		e.cancelTimer(key)
	}
	e.mu.Unlock()

	e.saves.Wait()
}
