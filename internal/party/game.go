package party

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"aimtrainer/backend/internal/hub"
)

func (e *Engine) handleStartGame(c *hub.Client, payload json.RawMessage) error {
	var req startGameRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	uid := c.Identity.UserID
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return errNotInParty
	}
	if !p.IsLeader(uid) {
		return errNotLeader
	}
	if p.Status == StatusInGame {
		return errPartyInGame
	}
	if !p.allReady() {
		return errMembersNotReady
	}

	settings := req.GameSettings
	if settings.Duration < 0 {
		settings.Duration = 0
	}
	session := &GameSession{
		ID:           e.reg.newID(),
		Settings:     settings,
		StartTime:    e.sched.Now(),
		Participants: make([]Participant, 0, len(p.Members)),
		Status:       SessionCountdown,
	}
	for _, m := range p.Members {
		session.Participants = append(session.Participants, Participant{
			UserID:   m.UserID,
			Username: m.Username,
			IsGuest:  m.IsGuest,
		})
	}
	p.Status = StatusInGame
	p.CurrentGame = session

	e.toParty(p.ID, EventGameStarted, GameStarted{PartyID: p.ID, Game: session.Clone()})
	e.countdown(p.ID, session.ID, e.cfg.CountdownSeconds)

	e.log.Debug().Str("party_id", p.ID).Str("game_id", session.ID).Msg("game starting")
	return nil
}

// countdown broadcasts count, then one tick per second down to zero, and
// activates the session on the zero tick.
func (e *Engine) countdown(partyID, gameID string, count int) {
	p, ok := e.reg.Get(partyID)
	if !ok || p.CurrentGame == nil || p.CurrentGame.ID != gameID {
		return
	}

	e.toParty(partyID, EventCountdown, Countdown{PartyID: partyID, GameID: gameID, Count: count})
	if count <= 0 {
		e.activate(p)
		return
	}
	e.schedule(timerKey(partyID, "countdown"), time.Second, func() {
		e.countdown(partyID, gameID, count-1)
	})
}

func (e *Engine) activate(p *Party) {
	game := p.CurrentGame
	game.Status = SessionActive
	game.StartTime = e.sched.Now()

	e.toParty(p.ID, EventGameActive, GameStarted{PartyID: p.ID, Game: game.Clone()})

	if game.Settings.Duration > 0 {
		partyID, gameID := p.ID, game.ID
		d := time.Duration(game.Settings.Duration) * time.Second
		e.schedule(timerKey(partyID, "game"), d, func() {
			p, ok := e.reg.Get(partyID)
			if !ok || p.CurrentGame == nil || p.CurrentGame.ID != gameID {
				return
			}
			e.finishGame(p, EndDuration)
		})
	}
}

func (e *Engine) handleGameUpdate(c *hub.Client, payload json.RawMessage) error {
	uid := c.Identity.UserID
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return errNotInParty
	}
	game := p.CurrentGame
	if game == nil || game.Status != SessionActive {
		return errGameNotActive
	}

	// The payload is client-authoritative: recognised stats are recorded,
	// everything is relayed untouched.
	var stats gameStats
	if json.Unmarshal(payload, &stats) == nil {
		if part, ok := game.participant(uid); ok {
			stats.applyTo(part)
		}
	}

	var data json.RawMessage
	if len(payload) > 0 {
		data = append(json.RawMessage(nil), payload...)
	}
	update := GameUpdate{
		PartyID:   p.ID,
		UserID:    uid,
		Username:  c.Identity.Username,
		Timestamp: e.sched.Now().UnixMilli(),
		Data:      data,
	}
	e.out.EmitRoom(partyRoom(p.ID), hub.Event{Type: EventGameUpdate, Payload: update}, c.ID)
	e.relayToSpectators(p.ID, update)
	return nil
}

func (s gameStats) applyTo(p *Participant) {
	if s.Score != nil {
		p.Score = *s.Score
	}
	if s.Hits != nil {
		p.Hits = *s.Hits
	}
	if s.Misses != nil {
		p.Misses = *s.Misses
	}
	if s.ReactionTime != nil {
		p.ReactionTime = *s.ReactionTime
	}
	if s.Streak != nil {
		p.Streak = *s.Streak
	}
	if s.Position != nil {
		pos := *s.Position
		p.Position = &pos
	}
}

// relayToSpectators forwards a game update to the spectators of the party
// once the session's spectator delay has passed.
func (e *Engine) relayToSpectators(partyID string, update GameUpdate) {
	session, ok := e.reg.SpectatorSession(partyID)
	if !ok {
		return
	}
	e.timerSeq++
	key := timerKey(partyID, "relay", strconv.FormatUint(e.timerSeq, 10))
	e.schedule(key, session.Settings.delay(), func() {
		e.out.EmitRoom(spectatorRoom(partyID), hub.Event{Type: EventSpectatorGameUpdate, Payload: update})
	})
}

func (e *Engine) handleEndGame(c *hub.Client, _ json.RawMessage) error {
	uid := c.Identity.UserID
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return errNotInParty
	}
	if !p.IsLeader(uid) {
		return errNotLeader
	}
	if p.CurrentGame == nil {
		return errGameNotActive
	}
	e.finishGame(p, EndLeader)
	return nil
}

// finishGame ranks the participants, returns the party to waiting and
// hands the result to the store. Ready flags are left as they are.
func (e *Engine) finishGame(p *Party, reason EndReason) {
	game := p.CurrentGame
	e.cancelTimer(timerKey(p.ID, "countdown"))
	e.cancelTimer(timerKey(p.ID, "game"))

	ranked := game.Clone().Participants
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	p.CurrentGame = nil
	p.Status = StatusWaiting

	e.toParty(p.ID, EventGameEnded, GameEnded{
		PartyID: p.ID,
		GameID:  game.ID,
		Reason:  reason,
		Results: ranked,
	})
	e.toParty(p.ID, EventUpdated, p.Clone())

	result := GameResult{
		PartyID:      p.ID,
		GameID:       game.ID,
		Settings:     game.Settings,
		Reason:       reason,
		StartedAt:    game.StartTime,
		EndedAt:      e.sched.Now(),
		Participants: ranked,
	}
	e.persist("game", func(ctx context.Context) error {
		return e.store.SaveGameResult(ctx, result)
	})

	e.log.Debug().Str("party_id", p.ID).Str("game_id", game.ID).Str("reason", string(reason)).Msg("game ended")
}
