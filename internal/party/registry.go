package party

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// inviteCodeCharset omits glyphs that are easy to confuse when read aloud
// or typed from a screenshot (0/O, 1/I/L).
const (
	inviteCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	inviteCodeLength  = 6
)

// Registry owns every party, spectator session and team challenge, plus the
// reverse indexes that enforce one party per user. It is not safe for
// concurrent use; the Engine serializes all access.
type Registry struct {
	parties    map[string]*Party
	memberOf   map[string]string // userID -> partyID
	spectating map[string]string // userID -> partyID
	sessions   map[string]*SpectatorSession
	challenges map[string]*TeamChallenge

	newID   func() string
	newCode func() string
}

func NewRegistry() *Registry {
	return &Registry{
		parties:    make(map[string]*Party),
		memberOf:   make(map[string]string),
		spectating: make(map[string]string),
		sessions:   make(map[string]*SpectatorSession),
		challenges: make(map[string]*TeamChallenge),
		newID:      uuid.NewString,
		newCode:    generateInviteCode,
	}
}

func generateInviteCode() string {
	var sb strings.Builder
	limit := big.NewInt(int64(len(inviteCodeCharset)))
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		sb.WriteByte(inviteCodeCharset[n.Int64()])
	}
	return sb.String()
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create registers a new party led by leader. The party is stored as given
// apart from the ID, leader fields and invite code.
func (r *Registry) Create(leader Member, p Party) (*Party, error) {
	if _, ok := r.memberOf[leader.UserID]; ok {
		return nil, errAlreadyInParty
	}
	if _, ok := r.spectating[leader.UserID]; ok {
		return nil, errAlreadySpectates
	}

	p.ID = r.newID()
	p.LeaderID = leader.UserID
	p.Status = StatusWaiting
	p.CurrentGame = nil
	p.InviteCode = ""
	if p.IsPrivate {
		p.InviteCode = r.newCode()
	}
	leader.Role = RoleLeader
	p.Members = []Member{leader}

	r.parties[p.ID] = &p
	r.memberOf[leader.UserID] = p.ID
	return &p, nil
}

func (r *Registry) Get(partyID string) (*Party, bool) {
	p, ok := r.parties[partyID]
	return p, ok
}

// PartyOf returns the party the user is a member of.
func (r *Registry) PartyOf(userID string) (*Party, bool) {
	id, ok := r.memberOf[userID]
	if !ok {
		return nil, false
	}
	p, ok := r.parties[id]
	return p, ok
}

// Join validates and appends m to the party. Nothing is mutated on failure.
func (r *Registry) Join(partyID string, m Member, inviteCode string) (*Party, error) {
	p, ok := r.parties[partyID]
	if !ok {
		return nil, errPartyNotFound
	}
	if p.IsFull() {
		return nil, errPartyFull
	}
	if p.IsPrivate && normalizeInviteCode(inviteCode) != p.InviteCode {
		return nil, errInvalidInvite
	}
	if p.Status == StatusInGame {
		return nil, errPartyInGame
	}
	if _, ok := r.memberOf[m.UserID]; ok {
		return nil, errAlreadyInParty
	}
	if _, ok := r.spectating[m.UserID]; ok {
		return nil, errAlreadySpectates
	}

	m.Role = RoleMember
	m.IsReady = false
	p.Members = append(p.Members, m)
	r.memberOf[m.UserID] = p.ID
	return p, nil
}

// RemoveMember removes the user from its party. If the leader left, the
// first remaining member in join order is promoted. If nobody is left the
// party is deleted and deleted is true.
func (r *Registry) RemoveMember(userID string) (p *Party, newLeader string, deleted bool) {
	p, ok := r.PartyOf(userID)
	if !ok {
		return nil, "", false
	}

	members := make([]Member, 0, len(p.Members))
	for _, m := range p.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	p.Members = members
	delete(r.memberOf, userID)

	if len(p.Members) == 0 {
		r.Delete(p.ID)
		return p, "", true
	}

	if p.LeaderID == userID {
		p.Members[0].Role = RoleLeader
		p.LeaderID = p.Members[0].UserID
		newLeader = p.LeaderID
	}
	return p, newLeader, false
}

// Delete drops a party together with every index entry, spectator session
// and challenge that points at it.
func (r *Registry) Delete(partyID string) {
	p, ok := r.parties[partyID]
	if !ok {
		return
	}
	for _, m := range p.Members {
		delete(r.memberOf, m.UserID)
	}
	if s, ok := r.sessions[partyID]; ok {
		for _, sp := range s.Spectators {
			delete(r.spectating, sp.UserID)
		}
		delete(r.sessions, partyID)
	}
	delete(r.challenges, partyID)
	delete(r.parties, partyID)
}

// SpectatorSession returns the viewers of a party.
func (r *Registry) SpectatorSession(partyID string) (*SpectatorSession, bool) {
	s, ok := r.sessions[partyID]
	return s, ok
}

// SpectatingOf returns the party the user is watching.
func (r *Registry) SpectatingOf(userID string) (string, bool) {
	id, ok := r.spectating[userID]
	return id, ok
}

// AddSpectator attaches a viewer, creating the session on first use.
func (r *Registry) AddSpectator(p *Party, s Spectator, newSession func() SpectatorSession) (*SpectatorSession, error) {
	if !p.AllowSpectators {
		return nil, errNoSpectators
	}
	if _, ok := r.memberOf[s.UserID]; ok {
		return nil, errIsPartyMember
	}
	if _, ok := r.spectating[s.UserID]; ok {
		return nil, errAlreadySpectates
	}
	session, ok := r.sessions[p.ID]
	if ok && len(session.Spectators) >= session.Settings.MaxSpectators {
		return nil, errSpectatorLimit
	}
	if !ok {
		fresh := newSession()
		session = &fresh
		if session.Settings.MaxSpectators < 1 {
			return nil, errSpectatorLimit
		}
		r.sessions[p.ID] = session
	}

	session.Spectators = append(session.Spectators, s)
	r.spectating[s.UserID] = p.ID
	return session, nil
}

// RemoveSpectator detaches a viewer and deletes the session once empty.
func (r *Registry) RemoveSpectator(userID string) (partyID string, removed Spectator, ok bool) {
	partyID, ok = r.spectating[userID]
	if !ok {
		return "", Spectator{}, false
	}
	delete(r.spectating, userID)

	session, exists := r.sessions[partyID]
	if !exists {
		return partyID, Spectator{UserID: userID}, true
	}
	kept := session.Spectators[:0]
	for _, s := range session.Spectators {
		if s.UserID == userID {
			removed = s
			continue
		}
		kept = append(kept, s)
	}
	session.Spectators = kept
	if len(session.Spectators) == 0 {
		delete(r.sessions, partyID)
	}
	return partyID, removed, true
}

func (r *Registry) SpectatorCount(partyID string) int {
	if s, ok := r.sessions[partyID]; ok {
		return len(s.Spectators)
	}
	return 0
}

func (r *Registry) Challenge(partyID string) (*TeamChallenge, bool) {
	c, ok := r.challenges[partyID]
	return c, ok
}

func (r *Registry) SetChallenge(c *TeamChallenge) {
	r.challenges[c.PartyID] = c
}

// Summaries lists public parties still waiting for players, oldest first.
func (r *Registry) Summaries() []Summary {
	out := make([]Summary, 0, len(r.parties))
	for _, p := range r.parties {
		if p.IsPrivate || p.Status != StatusWaiting {
			continue
		}
		out = append(out, Summary{
			ID:             p.ID,
			Name:           p.Name,
			LeaderID:       p.LeaderID,
			MemberCount:    len(p.Members),
			MaxMembers:     p.MaxMembers,
			Status:         p.Status,
			SpectatorCount: r.SpectatorCount(p.ID),
			CreatedAt:      p.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Stats counts what the registry currently holds.
func (r *Registry) Stats() Stats {
	s := Stats{
		Parties:    len(r.parties),
		Members:    len(r.memberOf),
		Spectators: len(r.spectating),
		Challenges: len(r.challenges),
	}
	for _, p := range r.parties {
		if p.CurrentGame != nil {
			s.ActiveGames++
		}
	}
	return s
}
