package party

import (
	"encoding/json"
	"strings"

	"aimtrainer/backend/internal/hub"
)

const maxPartyNameLength = 50

func (e *Engine) memberFrom(c *hub.Client) Member {
	level := c.Identity.Level
	if level < 1 {
		level = 1
	}
	return Member{
		UserID:   c.Identity.UserID,
		Username: c.Identity.Username,
		IsOnline: true,
		IsGuest:  c.Identity.IsGuest,
		Level:    level,
		JoinedAt: e.sched.Now(),
	}
}

func clampMaxMembers(n int) int {
	switch {
	case n == 0:
		return defaultMaxMembers
	case n < minMembers:
		return minMembers
	case n > HardMaxMembers:
		return HardMaxMembers
	}
	return n
}

func (e *Engine) spectatorSettingsFrom(req *spectatorSettings) SpectatorSettings {
	s := SpectatorSettings{
		MaxSpectators:  e.cfg.MaxSpectators,
		SpectatorDelay: e.cfg.SpectatorDelay.Seconds(),
		SpectatorChat:  true,
	}
	if req == nil {
		return s
	}
	if req.MaxSpectators > 0 && req.MaxSpectators < s.MaxSpectators {
		s.MaxSpectators = req.MaxSpectators
	}
	if req.SpectatorDelay != nil && *req.SpectatorDelay >= 0 {
		s.SpectatorDelay = *req.SpectatorDelay
	}
	if req.SpectatorChat != nil {
		s.SpectatorChat = *req.SpectatorChat
	}
	return s
}

func (e *Engine) handleCreate(c *hub.Client, payload json.RawMessage) error {
	var req createRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	leader := e.memberFrom(c)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = leader.Username + "'s Party"
	}
	if r := []rune(name); len(r) > maxPartyNameLength {
		name = string(r[:maxPartyNameLength])
	}
	allowSpectators := true
	if req.AllowSpectators != nil {
		allowSpectators = *req.AllowSpectators
	}

	p, err := e.reg.Create(leader, Party{
		Name:              name,
		MaxMembers:        clampMaxMembers(req.MaxMembers),
		IsPrivate:         req.IsPrivate,
		AllowSpectators:   allowSpectators,
		SpectatorSettings: e.spectatorSettingsFrom(req.SpectatorSettings),
		CreatedAt:         e.sched.Now(),
	})
	if err != nil {
		return err
	}

	e.out.Join(c.ID, partyRoom(p.ID))
	e.emit(c.ID, EventUpdated, p.Clone())

	e.log.Debug().Str("party_id", p.ID).Str("user_id", leader.UserID).Msg("party created")
	return nil
}

func (e *Engine) handleJoin(c *hub.Client, payload json.RawMessage) error {
	var req joinRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	m := e.memberFrom(c)
	p, err := e.reg.Join(strings.TrimSpace(req.PartyID), m, req.InviteCode)
	if err != nil {
		return err
	}
	joined, _ := p.Member(m.UserID)

	e.out.Join(c.ID, partyRoom(p.ID))
	e.toParty(p.ID, EventUpdated, p.Clone())
	e.toParty(p.ID, EventMemberJoined, MemberJoined{PartyID: p.ID, Member: *joined})

	e.log.Debug().Str("party_id", p.ID).Str("user_id", m.UserID).Msg("member joined")
	return nil
}

func (e *Engine) handleLeave(c *hub.Client, _ json.RawMessage) error {
	return e.leave(c.Identity.UserID, c.ID)
}

func (e *Engine) handleReady(c *hub.Client, payload json.RawMessage) error {
	var req readyRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	p, ok := e.reg.PartyOf(c.Identity.UserID)
	if !ok {
		return errNotInParty
	}
	m, _ := p.Member(c.Identity.UserID)
	m.IsReady = req.IsReady

	e.toParty(p.ID, EventUpdated, p.Clone())
	return nil
}

// leave removes the user from its party. connID is the connection to
// acknowledge and unsubscribe; it is empty when the grace period expired.
func (e *Engine) leave(userID, connID string) error {
	current, ok := e.reg.PartyOf(userID)
	if !ok {
		return errNotInParty
	}
	partyID := current.ID
	departed, _ := current.Member(userID)
	username := departed.Username

	// The spectator session is gone once the party is deleted, so keep
	// a handle to notify its viewers.
	session, _ := e.reg.SpectatorSession(partyID)

	e.cancelTimer(timerKey(partyID, "grace", userID))
	e.dropFromTeams(partyID, userID)
	p, newLeader, deleted := e.reg.RemoveMember(userID)

	for _, id := range e.conns[userID] {
		e.out.Leave(id, partyRoom(partyID))
	}
	if connID != "" {
		e.out.Leave(connID, partyRoom(partyID))
		e.emit(connID, EventLeft, PartyLeft{PartyID: partyID})
	}

	if deleted {
		e.closeParty(partyID, session)
		e.log.Debug().Str("party_id", partyID).Msg("party deleted")
		return nil
	}

	e.toParty(partyID, EventUpdated, p.Clone())
	e.toParty(partyID, EventMemberLeft, MemberLeft{
		PartyID:     partyID,
		UserID:      userID,
		Username:    username,
		NewLeaderID: newLeader,
	})
	if newLeader != "" {
		e.log.Debug().Str("party_id", partyID).Str("user_id", newLeader).Msg("leader promoted")
	}
	return nil
}

// closeParty tears down everything still attached to a deleted party.
func (e *Engine) closeParty(partyID string, session *SpectatorSession) {
	e.cancelPartyTimers(partyID)
	if session == nil {
		return
	}
	ev := hub.Event{Type: EventSpectatedPartyEnded, Payload: PartyLeft{PartyID: partyID}}
	e.out.EmitRoom(spectatorRoom(partyID), ev)
	for _, s := range session.Spectators {
		for _, connID := range e.conns[s.UserID] {
			e.out.Leave(connID, spectatorRoom(partyID))
			e.out.Leave(connID, viewerRoom(partyID))
		}
	}
}

// handOver makes connID act for the user after its newer connection closed.
// The user stays online, so no grace period starts.
func (e *Engine) handOver(uid, connID string) {
	if partyID, ok := e.reg.SpectatingOf(uid); ok {
		e.out.Join(connID, spectatorRoom(partyID))
		e.out.Join(connID, viewerRoom(partyID))
	}
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return
	}
	e.out.Join(connID, partyRoom(p.ID))
	e.emit(connID, EventUpdated, p.Clone())

	e.log.Debug().Str("party_id", p.ID).Str("user_id", uid).Str("conn_id", connID).Msg("member handed over to older connection")
}

// resume restores a member that reconnected inside the grace window.
func (e *Engine) resume(c *hub.Client) {
	uid := c.Identity.UserID
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return
	}
	m, _ := p.Member(uid)

	e.cancelTimer(timerKey(p.ID, "grace", uid))
	m.IsOnline = true
	e.out.Join(c.ID, partyRoom(p.ID))

	snapshot := p.Clone()
	e.emit(c.ID, EventUpdated, snapshot)
	e.toParty(p.ID, EventUpdated, snapshot, c.ID)

	e.log.Debug().Str("party_id", p.ID).Str("user_id", uid).Msg("member reconnected")
}

// suspend marks a disconnected member offline and removes it for good if
// it does not come back within the grace period.
func (e *Engine) suspend(uid string) {
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return
	}
	m, _ := p.Member(uid)
	m.IsOnline = false
	e.toParty(p.ID, EventUpdated, p.Clone())

	e.schedule(timerKey(p.ID, "grace", uid), e.cfg.DisconnectGrace, func() {
		p, ok := e.reg.PartyOf(uid)
		if !ok {
			return
		}
		if m, ok := p.Member(uid); !ok || m.IsOnline {
			return
		}
		e.log.Debug().Str("party_id", p.ID).Str("user_id", uid).Msg("grace period expired")
		_ = e.leave(uid, "")
	})
}
