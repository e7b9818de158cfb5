package party

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"aimtrainer/backend/internal/hub"
)

const maxChatLength = 500

func (e *Engine) handleSpectatorJoin(c *hub.Client, payload json.RawMessage) error {
	var req spectateRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	p, ok := e.reg.Get(strings.TrimSpace(req.PartyID))
	if !ok {
		return errPartyNotFound
	}
	viewer := Spectator{
		UserID:     c.Identity.UserID,
		Username:   c.Identity.Username,
		IsOnline:   true,
		CameraMode: CameraFree,
		JoinedAt:   e.sched.Now(),
	}
	session, err := e.reg.AddSpectator(p, viewer, func() SpectatorSession {
		return SpectatorSession{
			PartyID:   p.ID,
			Settings:  p.SpectatorSettings,
			CreatedAt: e.sched.Now(),
		}
	})
	if err != nil {
		return err
	}

	e.out.Join(c.ID, spectatorRoom(p.ID))
	e.out.Join(c.ID, viewerRoom(p.ID))

	e.emit(c.ID, EventSpectatorJoined, SpectatorJoined{Party: p.ForViewer(), Session: session.Clone()})
	e.out.EmitRoom(spectatorRoom(p.ID), hub.Event{
		Type:    EventSpectatorUserJoined,
		Payload: SpectatorUser{PartyID: p.ID, Spectator: viewer},
	}, c.ID)
	e.broadcastSpectatorCount(p.ID)

	e.log.Debug().Str("party_id", p.ID).Str("user_id", viewer.UserID).Msg("spectator joined")
	return nil
}

func (e *Engine) handleSpectatorLeave(c *hub.Client, _ json.RawMessage) error {
	if _, ok := e.reg.SpectatingOf(c.Identity.UserID); !ok {
		return errNotSpectating
	}
	e.stopSpectating(c.Identity.UserID, c.ID)
	return nil
}

// stopSpectating detaches a viewer. connID is empty when the viewer's
// connection is already gone.
func (e *Engine) stopSpectating(userID, connID string) {
	partyID, removed, ok := e.reg.RemoveSpectator(userID)
	if !ok {
		return
	}

	for _, id := range e.conns[userID] {
		e.out.Leave(id, spectatorRoom(partyID))
		e.out.Leave(id, viewerRoom(partyID))
	}
	if connID != "" {
		e.out.Leave(connID, spectatorRoom(partyID))
		e.out.Leave(connID, viewerRoom(partyID))
		e.emit(connID, EventSpectatorLeft, PartyLeft{PartyID: partyID})
	}
	e.out.EmitRoom(spectatorRoom(partyID), hub.Event{
		Type:    EventSpectatorUserLeft,
		Payload: SpectatorUser{PartyID: partyID, Spectator: removed},
	})
	e.broadcastSpectatorCount(partyID)

	e.log.Debug().Str("party_id", partyID).Str("user_id", userID).Msg("spectator left")
}

func (e *Engine) broadcastSpectatorCount(partyID string) {
	e.out.EmitRoom(partyRoom(partyID), hub.Event{
		Type:    EventSpectatorCount,
		Payload: SpectatorCount{PartyID: partyID, Count: e.reg.SpectatorCount(partyID)},
	})
}

func (e *Engine) watching(userID string) (*SpectatorSession, *Spectator, error) {
	partyID, ok := e.reg.SpectatingOf(userID)
	if !ok {
		return nil, nil, errNotSpectating
	}
	session, ok := e.reg.SpectatorSession(partyID)
	if !ok {
		return nil, nil, errNotSpectating
	}
	viewer, ok := session.spectator(userID)
	if !ok {
		return nil, nil, errNotSpectating
	}
	return session, viewer, nil
}

func (e *Engine) handleCameraUpdate(c *hub.Client, payload json.RawMessage) error {
	var req cameraRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	session, viewer, err := e.watching(c.Identity.UserID)
	if err != nil {
		return err
	}
	if !req.CameraMode.valid() {
		return newError(CodeInvalidPayload, "Unknown camera mode")
	}

	following := ""
	if req.CameraMode == CameraFollow {
		p, ok := e.reg.Get(session.PartyID)
		if !ok || !p.HasMember(req.FollowingPlayerID) {
			return newError(CodeInvalidPayload, "Follow mode needs a player of this party")
		}
		following = req.FollowingPlayerID
	}
	viewer.CameraMode = req.CameraMode
	viewer.FollowingPlayerID = following

	e.emit(c.ID, EventCameraUpdated, SpectatorUser{PartyID: session.PartyID, Spectator: *viewer})
	return nil
}

func (e *Engine) handleSpectatorChat(c *hub.Client, payload json.RawMessage) error {
	var req chatRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	session, viewer, err := e.watching(c.Identity.UserID)
	if err != nil {
		return err
	}
	if !session.Settings.SpectatorChat {
		return errChatDisabled
	}
	text, err := chatText(req.Message)
	if err != nil {
		return err
	}

	e.out.EmitRoom(spectatorRoom(session.PartyID), hub.Event{Type: EventSpectatorMessage, Payload: ChatMessage{
		ID:        e.reg.newID(),
		PartyID:   session.PartyID,
		UserID:    viewer.UserID,
		Username:  viewer.Username,
		Message:   text,
		Timestamp: e.sched.Now().UnixMilli(),
	}})
	return nil
}

func chatText(message string) (string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return "", newError(CodeInvalidPayload, "Message is empty")
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		return "", newError(CodeInvalidPayload, "Message is too long")
	}
	return text, nil
}
