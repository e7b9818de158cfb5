package party

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"aimtrainer/backend/internal/auth"
	"aimtrainer/backend/internal/hub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// manualScheduler only fires timers when the test advances it.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	s    *manualScheduler
	at   time.Time
	fn   func()
	done bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{s: s, at: s.now.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in order. Timers armed
// by a callback fire too if they fall inside the window.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		next.done = true
		s.now = next.at
		s.mu.Unlock()
		next.fn()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

func (s *manualScheduler) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range s.timers {
		if t.done || t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) {
			next = t
		}
	}
	return next
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.done {
			n++
		}
	}
	return n
}

type memStore struct {
	mu         sync.Mutex
	games      []GameResult
	challenges []ChallengeResult
}

func (m *memStore) SaveGameResult(_ context.Context, r GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, r)
	return nil
}

func (m *memStore) SaveChallengeResult(_ context.Context, r ChallengeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges = append(m.challenges, r)
	return nil
}

type harness struct {
	t     *testing.T
	hub   *hub.Hub
	eng   *Engine
	clock *manualScheduler
	store *memStore
	seq   int
}

func newHarness(t *testing.T, tweaks ...func(*Settings)) *harness {
	t.Helper()

	settings := DefaultSettings()
	for _, tweak := range tweaks {
		tweak(&settings)
	}
	h := &harness{
		t:     t,
		hub:   hub.NewHub(zerolog.Nop()),
		clock: newManualScheduler(),
		store: &memStore{},
	}
	h.eng = NewEngine(h.hub,
		WithSettings(settings),
		WithScheduler(h.clock),
		WithStore(h.store),
		WithLogger(zerolog.Nop()),
	)
	// Keep join order so random formation is predictable.
	h.eng.shuffle = func(int, func(i, j int)) {}
	return h
}

func (h *harness) connect(userID string) *hub.Client {
	return h.connectAs(auth.Identity{UserID: userID, Username: "user-" + userID, Level: 1})
}

func (h *harness) connectAs(id auth.Identity) *hub.Client {
	h.seq++
	c := hub.NewClient(fmt.Sprintf("conn-%d", h.seq), id, nil)
	h.hub.Register(c)
	h.eng.OnConnect(c)
	h.drain(c)
	return c
}

func (h *harness) disconnect(c *hub.Client) {
	h.eng.OnDisconnect(c)
	h.hub.Unregister(c)
}

func (h *harness) send(c *hub.Client, eventType string, payload interface{}) {
	h.t.Helper()

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(h.t, err)
		raw = b
	}
	h.eng.OnMessage(c, hub.Message{Type: eventType, Payload: raw})
}

func (h *harness) drain(c *hub.Client) []hub.Message {
	var out []hub.Message
	for {
		select {
		case data, ok := <-c.Send():
			if !ok {
				return out
			}
			var msg hub.Message
			require.NoError(h.t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

// errorCode drains c and returns the code of the last error it received.
func (h *harness) errorCode(c *hub.Client) ErrorCode {
	h.t.Helper()

	var code ErrorCode
	for _, msg := range h.drain(c) {
		if msg.Type == EventError {
			code = decodeAs[Error](h.t, msg).Code
		}
	}
	return code
}

func (h *harness) createParty(c *hub.Client, req map[string]interface{}) Party {
	h.t.Helper()

	h.send(c, EventCreate, req)
	msgs := h.drain(c)
	require.NotEmpty(h.t, msgs, "no reply to party:create")
	return decodeAs[Party](h.t, last(h.t, msgs, EventUpdated))
}

func (h *harness) join(c *hub.Client, partyID string) {
	h.t.Helper()

	h.send(c, EventJoin, map[string]string{"partyId": partyID})
	require.Empty(h.t, h.errorCode(c), "join failed")
}

// partyWith creates a party led by the first user and joined by the rest.
func (h *harness) partyWith(users ...*hub.Client) Party {
	h.t.Helper()

	p := h.createParty(users[0], map[string]interface{}{"name": "squad", "maxMembers": 8})
	for _, c := range users[1:] {
		h.join(c, p.ID)
	}
	for _, c := range users {
		h.drain(c)
	}
	return p
}

func (h *harness) readyAll(users ...*hub.Client) {
	h.t.Helper()

	for _, c := range users {
		h.send(c, EventReady, map[string]bool{"isReady": true})
	}
	for _, c := range users {
		h.drain(c)
	}
}

func (h *harness) waitSaves() {
	h.eng.saves.Wait()
}

// checkInvariants asserts the registry-wide rules that must hold after
// every handler.
func (h *harness) checkInvariants() {
	h.t.Helper()

	reg := h.eng.reg
	for id, p := range reg.parties {
		require.NotEmpty(h.t, p.Members, "party %s is empty but registered", id)
		leaders := 0
		seen := make(map[string]bool)
		for _, m := range p.Members {
			require.False(h.t, seen[m.UserID], "duplicate member %s", m.UserID)
			seen[m.UserID] = true
			require.Equal(h.t, id, reg.memberOf[m.UserID])
			if m.Role == RoleLeader {
				leaders++
				require.Equal(h.t, p.LeaderID, m.UserID)
			}
		}
		require.Equal(h.t, 1, leaders, "party %s must have exactly one leader", id)
		require.LessOrEqual(h.t, len(p.Members), p.MaxMembers)
		require.Equal(h.t, p.Status == StatusInGame, p.CurrentGame != nil)
	}
	for uid, pid := range reg.memberOf {
		_, ok := reg.parties[pid]
		require.True(h.t, ok, "member index of %s points at missing party", uid)
		_, spectating := reg.spectating[uid]
		require.False(h.t, spectating, "%s is both member and spectator", uid)
	}
	for uid, pid := range reg.spectating {
		_, ok := reg.parties[pid]
		require.True(h.t, ok, "spectator index of %s points at missing party", uid)
		session, ok := reg.sessions[pid]
		require.True(h.t, ok)
		_, ok = session.spectator(uid)
		require.True(h.t, ok)
	}
	for pid, s := range reg.sessions {
		require.NotEmpty(h.t, s.Spectators, "empty spectator session for %s", pid)
	}
	for pid := range reg.challenges {
		_, ok := reg.parties[pid]
		require.True(h.t, ok, "challenge of deleted party %s", pid)
	}
}

func find(msgs []hub.Message, eventType string) []hub.Message {
	var out []hub.Message
	for _, m := range msgs {
		if m.Type == eventType {
			out = append(out, m)
		}
	}
	return out
}

func eventTypes(msgs []hub.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func last(t *testing.T, msgs []hub.Message, eventType string) hub.Message {
	t.Helper()

	found := find(msgs, eventType)
	require.NotEmpty(t, found, "no %s event in %v", eventType, eventTypes(msgs))
	return found[len(found)-1]
}

func decodeAs[T any](t *testing.T, msg hub.Message) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}
