package party

import "encoding/json"

// region --- Inbound ---

type createRequest struct {
	Name              string             `json:"name"`
	MaxMembers        int                `json:"maxMembers"`
	IsPrivate         bool               `json:"isPrivate"`
	AllowSpectators   *bool              `json:"allowSpectators"`
	SpectatorSettings *spectatorSettings `json:"spectatorSettings"`
}

type spectatorSettings struct {
	MaxSpectators  int      `json:"maxSpectators"`
	SpectatorDelay *float64 `json:"spectatorDelay"`
	SpectatorChat  *bool    `json:"spectatorChat"`
}

type joinRequest struct {
	PartyID    string `json:"partyId"`
	InviteCode string `json:"inviteCode"`
}

type readyRequest struct {
	IsReady bool `json:"isReady"`
}

type startGameRequest struct {
	GameSettings GameSettings `json:"gameSettings"`
}

// Only the fields present in a game update are applied to the sender's
// participant entry.
type gameStats struct {
	Score        *int     `json:"score"`
	Hits         *int     `json:"hits"`
	Misses       *int     `json:"misses"`
	ReactionTime *float64 `json:"reactionTime"`
	Streak       *int     `json:"streak"`
	Position     *Vector3 `json:"position"`
}

type spectateRequest struct {
	PartyID string `json:"partyId"`
}

type cameraRequest struct {
	CameraMode        CameraMode `json:"cameraMode"`
	FollowingPlayerID string     `json:"followingPlayerId"`
}

type chatRequest struct {
	TeamID  string `json:"teamId"`
	Message string `json:"message"`
}

type createChallengeRequest struct {
	PartyID       string             `json:"partyId"`
	ChallengeType ChallengeType      `json:"challengeType"`
	Settings      *challengeSettings `json:"settings"`
}

type challengeSettings struct {
	Duration           int   `json:"duration"`
	MaxTeams           int   `json:"maxTeams"`
	MinPlayersPerTeam  int   `json:"minPlayersPerTeam"`
	MaxPlayersPerTeam  int   `json:"maxPlayersPerTeam"`
	AllowTeamSwitching *bool `json:"allowTeamSwitching"`
}

type formTeamsRequest struct {
	PartyID   string    `json:"partyId"`
	Formation Formation `json:"formation"`
	// Teams is only read for manual formation.
	Teams [][]string `json:"teams"`
}

type challengeRequest struct {
	PartyID string `json:"partyId"`
}

type progressRequest struct {
	PartyID     string  `json:"partyId"`
	TeamID      string  `json:"teamId"`
	ObjectiveID string  `json:"objectiveId"`
	Progress    float64 `json:"progress"`
}

type switchRequest struct {
	PartyID    string `json:"partyId"`
	FromTeamID string `json:"fromTeamId"`
	ToTeamID   string `json:"toTeamId"`
}

// endregion

// region --- Outbound ---

type ConnectionReady struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	IsGuest      bool   `json:"isGuest"`
}

type MemberJoined struct {
	PartyID string `json:"partyId"`
	Member  Member `json:"member"`
}

type MemberLeft struct {
	PartyID     string `json:"partyId"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	NewLeaderID string `json:"newLeaderId,omitempty"`
}

type PartyLeft struct {
	PartyID string `json:"partyId"`
}

type GameStarted struct {
	PartyID string      `json:"partyId"`
	Game    GameSession `json:"game"`
}

type Countdown struct {
	PartyID string `json:"partyId"`
	GameID  string `json:"gameId"`
	Count   int    `json:"count"`
}

type GameUpdate struct {
	PartyID   string          `json:"partyId"`
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EndReason says why a party game ended.
type EndReason string

const (
	EndDuration EndReason = "duration"
	EndLeader   EndReason = "leader"
)

type GameEnded struct {
	PartyID string        `json:"partyId"`
	GameID  string        `json:"gameId"`
	Reason  EndReason     `json:"reason"`
	Results []Participant `json:"results"`
}

type SpectatorCount struct {
	PartyID string `json:"partyId"`
	Count   int    `json:"count"`
}

type SpectatorJoined struct {
	Party   Party            `json:"party"`
	Session SpectatorSession `json:"session"`
}

type SpectatorUser struct {
	PartyID   string    `json:"partyId"`
	Spectator Spectator `json:"spectator"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	PartyID   string `json:"partyId"`
	TeamID    string `json:"teamId,omitempty"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type ChallengeEvent struct {
	PartyID   string        `json:"partyId"`
	Challenge TeamChallenge `json:"challenge"`
}

type ChallengeStarting struct {
	PartyID     string `json:"partyId"`
	ChallengeID string `json:"challengeId"`
	Countdown   int    `json:"countdown"`
}

type ChallengeTick struct {
	PartyID     string `json:"partyId"`
	ChallengeID string `json:"challengeId"`
	Count       int    `json:"count"`
}

type TeamUpdate struct {
	PartyID     string `json:"partyId"`
	ChallengeID string `json:"challengeId"`
	Team        Team   `json:"team"`
	ObjectiveID string `json:"objectiveId"`
	Completed   bool   `json:"completed"`
}

type MemberSwitched struct {
	PartyID    string `json:"partyId"`
	UserID     string `json:"userId"`
	FromTeamID string `json:"fromTeamId"`
	ToTeamID   string `json:"toTeamId"`
	Teams      []Team `json:"teams"`
}

// endregion
