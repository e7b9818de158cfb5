package party

import (
	"time"
)

// Status is the coarse state of a party.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusInGame  Status = "in-game"
)

// Role of a member inside its party.
type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// SessionStatus is the state of a running game session.
type SessionStatus string

const (
	SessionCountdown SessionStatus = "countdown"
	SessionActive    SessionStatus = "active"
)

const (
	// HardMaxMembers caps the size of every party.
	HardMaxMembers    = 8
	minMembers        = 2
	defaultMaxMembers = 4
)

// Member is a user inside a party. Members keep join order.
type Member struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	IsReady  bool      `json:"isReady"`
	IsOnline bool      `json:"isOnline"`
	IsGuest  bool      `json:"isGuest"`
	Level    int       `json:"level"`
	JoinedAt time.Time `json:"joinedAt"`
}

// SpectatorSettings controls who may watch a party and how.
type SpectatorSettings struct {
	MaxSpectators int `json:"maxSpectators"`
	// SpectatorDelay is in seconds.
	SpectatorDelay float64 `json:"spectatorDelay"`
	SpectatorChat  bool    `json:"spectatorChat"`
}

func (s SpectatorSettings) delay() time.Duration {
	return time.Duration(s.SpectatorDelay * float64(time.Second))
}

// Party is a lobby of up to HardMaxMembers users.
type Party struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	LeaderID          string            `json:"leaderId"`
	MaxMembers        int               `json:"maxMembers"`
	IsPrivate         bool              `json:"isPrivate"`
	InviteCode        string            `json:"inviteCode,omitempty"`
	Members           []Member          `json:"members"`
	Status            Status            `json:"status"`
	CurrentGame       *GameSession      `json:"currentGame"`
	AllowSpectators   bool              `json:"allowSpectators"`
	SpectatorSettings SpectatorSettings `json:"spectatorSettings"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Member returns the member with the given user ID.
func (p *Party) Member(userID string) (*Member, bool) {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i], true
		}
	}
	return nil, false
}

func (p *Party) HasMember(userID string) bool {
	_, ok := p.Member(userID)
	return ok
}

func (p *Party) IsLeader(userID string) bool {
	return p.LeaderID == userID
}

func (p *Party) IsFull() bool {
	return len(p.Members) >= p.MaxMembers
}

func (p *Party) allReady() bool {
	for _, m := range p.Members {
		if !m.IsReady {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand outside the engine lock.
func (p *Party) Clone() Party {
	out := *p
	out.Members = append([]Member(nil), p.Members...)
	if p.CurrentGame != nil {
		g := p.CurrentGame.Clone()
		out.CurrentGame = &g
	}
	return out
}

// ForViewer is the party as non-members see it: the invite code is hidden
// and live participant stats are left to the delayed spectator relay.
func (p *Party) ForViewer() Party {
	out := p.Clone()
	out.InviteCode = ""
	if out.CurrentGame != nil {
		out.CurrentGame.hideStats()
	}
	return out
}

// Summary is the public listing view of a party.
type Summary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LeaderID       string    `json:"leaderId"`
	MemberCount    int       `json:"memberCount"`
	MaxMembers     int       `json:"maxMembers"`
	Status         Status    `json:"status"`
	SpectatorCount int       `json:"spectatorCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GameSettings are chosen by the leader when starting a game.
type GameSettings struct {
	Mode       string `json:"mode,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	// Duration in seconds. Zero means the game runs until the leader ends it.
	Duration    int `json:"duration,omitempty"`
	TargetCount int `json:"targetCount,omitempty"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Participant carries the live stats of one player in a game session.
type Participant struct {
	UserID       string   `json:"userId"`
	Username     string   `json:"username"`
	IsGuest      bool     `json:"isGuest"`
	Score        int      `json:"score"`
	Hits         int      `json:"hits"`
	Misses       int      `json:"misses"`
	ReactionTime float64  `json:"reactionTime"`
	Streak       int      `json:"streak"`
	Position     *Vector3 `json:"position,omitempty"`
}

// GameSession exists on a party while its status is in-game.
type GameSession struct {
	ID           string        `json:"id"`
	Settings     GameSettings  `json:"gameSettings"`
	StartTime    time.Time     `json:"startTime"`
	Participants []Participant `json:"participants"`
	Status       SessionStatus `json:"status"`
}

func (g *GameSession) participant(userID string) (*Participant, bool) {
	for i := range g.Participants {
		if g.Participants[i].UserID == userID {
			return &g.Participants[i], true
		}
	}
	return nil, false
}

func (g *GameSession) hideStats() {
	for i, pt := range g.Participants {
		g.Participants[i] = Participant{UserID: pt.UserID, Username: pt.Username, IsGuest: pt.IsGuest}
	}
}

func (g *GameSession) Clone() GameSession {
	out := *g
	out.Participants = make([]Participant, len(g.Participants))
	for i, p := range g.Participants {
		if p.Position != nil {
			pos := *p.Position
			p.Position = &pos
		}
		out.Participants[i] = p
	}
	return out
}

// CameraMode is how a spectator follows the game.
type CameraMode string

const (
	CameraFree     CameraMode = "free"
	CameraFollow   CameraMode = "follow"
	CameraOverview CameraMode = "overview"
)

func (m CameraMode) valid() bool {
	switch m {
	case CameraFree, CameraFollow, CameraOverview:
		return true
	}
	return false
}

type Spectator struct {
	UserID            string     `json:"userId"`
	Username          string     `json:"username"`
	IsOnline          bool       `json:"isOnline"`
	CameraMode        CameraMode `json:"cameraMode"`
	FollowingPlayerID string     `json:"followingPlayerId,omitempty"`
	JoinedAt          time.Time  `json:"joinedAt"`
}

// SpectatorSession holds the viewers of one party. It exists only while at
// least one spectator is attached.
type SpectatorSession struct {
	PartyID    string            `json:"partyId"`
	Spectators []Spectator       `json:"spectators"`
	Settings   SpectatorSettings `json:"settings"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (s *SpectatorSession) spectator(userID string) (*Spectator, bool) {
	for i := range s.Spectators {
		if s.Spectators[i].UserID == userID {
			return &s.Spectators[i], true
		}
	}
	return nil, false
}

func (s *SpectatorSession) Clone() SpectatorSession {
	out := *s
	out.Spectators = append([]Spectator(nil), s.Spectators...)
	return out
}

// ChallengeType selects the objective template of a team challenge.
type ChallengeType string

const (
	ChallengeTeamVsTeam     ChallengeType = "team-vs-team"
	ChallengeTeamObjectives ChallengeType = "team-objectives"
	ChallengeTeamRelay      ChallengeType = "team-relay"
	ChallengeTeamSurvival   ChallengeType = "team-survival"
)

type ChallengeStatus string

const (
	ChallengeSetup     ChallengeStatus = "setup"
	ChallengeCountdown ChallengeStatus = "countdown"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
)

// Formation is the strategy used to split a party into teams.
type Formation string

const (
	FormationRandom      Formation = "random"
	FormationSkillBased  Formation = "skill-based"
	FormationManual      Formation = "manual"
	FormationCaptainPick Formation = "captain-pick"
)

type ObjectiveType string

const (
	ObjectiveElimination ObjectiveType = "elimination"
	ObjectiveAccuracy    ObjectiveType = "accuracy"
	ObjectiveCapture     ObjectiveType = "capture"
	ObjectiveRelay       ObjectiveType = "relay"
	ObjectiveSurvival    ObjectiveType = "survival"
)

type Reward struct {
	Points int `json:"points"`
}

type Objective struct {
	ID          string        `json:"id"`
	Type        ObjectiveType `json:"type"`
	Description string        `json:"description"`
	Target      float64       `json:"target"`
	Progress    float64       `json:"progress"`
	IsCompleted bool          `json:"isCompleted"`
	Reward      Reward        `json:"reward"`
}

type Team struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Color      string      `json:"color"`
	MemberIDs  []string    `json:"memberIds"`
	Score      int         `json:"score"`
	Objectives []Objective `json:"objectives"`
}

func (t *Team) hasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Team) removeMember(userID string) bool {
	for i, id := range t.MemberIDs {
		if id == userID {
			t.MemberIDs = append(t.MemberIDs[:i], t.MemberIDs[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Team) objective(id string) (*Objective, bool) {
	for i := range t.Objectives {
		if t.Objectives[i].ID == id {
			return &t.Objectives[i], true
		}
	}
	return nil, false
}

func (t *Team) allCompleted() bool {
	for _, o := range t.Objectives {
		if !o.IsCompleted {
			return false
		}
	}
	return len(t.Objectives) > 0
}

func (t Team) clone() Team {
	t.MemberIDs = append([]string(nil), t.MemberIDs...)
	t.Objectives = append([]Objective(nil), t.Objectives...)
	return t
}

type ChallengeSettings struct {
	// Duration in seconds before the challenge is force-ended.
	Duration           int  `json:"duration"`
	MaxTeams           int  `json:"maxTeams"`
	MinPlayersPerTeam  int  `json:"minPlayersPerTeam"`
	MaxPlayersPerTeam  int  `json:"maxPlayersPerTeam"`
	AllowTeamSwitching bool `json:"allowTeamSwitching"`
}

// TeamResult is the final placement of a team.
type TeamResult struct {
	TeamID     string   `json:"teamId"`
	TeamName   string   `json:"teamName"`
	Rank       int      `json:"rank"`
	Score      int      `json:"score"`
	Multiplier float64  `json:"multiplier"`
	XP         int      `json:"xp"`
	Points     int      `json:"points"`
	MemberIDs  []string `json:"memberIds"`
}

// TeamChallenge is a team sub-game inside a party. Its lifecycle is
// independent from the party's game session.
type TeamChallenge struct {
	ID         string            `json:"id"`
	PartyID    string            `json:"partyId"`
	Type       ChallengeType     `json:"challengeType"`
	Settings   ChallengeSettings `json:"settings"`
	Teams      []Team            `json:"teams"`
	Objectives []Objective       `json:"objectives"`
	Status     ChallengeStatus   `json:"status"`
	WinnerID   string            `json:"winnerId,omitempty"`
	Results    []TeamResult      `json:"results,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	StartedAt  *time.Time        `json:"startedAt,omitempty"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
}

func (c *TeamChallenge) team(id string) (*Team, bool) {
	for i := range c.Teams {
		if c.Teams[i].ID == id {
			return &c.Teams[i], true
		}
	}
	return nil, false
}

func (c *TeamChallenge) running() bool {
	return c.Status == ChallengeCountdown || c.Status == ChallengeActive
}

func (c *TeamChallenge) Clone() TeamChallenge {
	out := *c
	out.Teams = make([]Team, len(c.Teams))
	for i, t := range c.Teams {
		out.Teams[i] = t.clone()
	}
	out.Objectives = append([]Objective(nil), c.Objectives...)
	if c.Results != nil {
		out.Results = make([]TeamResult, len(c.Results))
		for i, r := range c.Results {
			r.MemberIDs = append([]string(nil), r.MemberIDs...)
			out.Results[i] = r
		}
	}
	return out
}

// Stats is a point-in-time count of engine state.
type Stats struct {
	Parties     int `json:"parties"`
	Members     int `json:"members"`
	Spectators  int `json:"spectators"`
	Challenges  int `json:"challenges"`
	Connections int `json:"connections"`
	ActiveGames int `json:"activeGames"`
}
