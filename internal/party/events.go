package party

// Inbound events.
const (
	EventCreate     = "party:create"
	EventJoin       = "party:join"
	EventLeave      = "party:leave"
	EventReady      = "party:ready"
	EventStartGame  = "party:start-game"
	EventGameUpdate = "party:game-update"
	EventEndGame    = "party:end-game"

	EventSpectatorJoin   = "spectator:join"
	EventSpectatorLeave  = "spectator:leave"
	EventCameraUpdate    = "spectator:camera-update"
	EventSpectatorChat   = "spectator:chat"
	EventCreateChallenge = "team:create-challenge"
	EventFormTeams       = "team:form-teams"
	EventStartChallenge  = "team:start-challenge"
	EventObjective       = "team:objective-progress"
	EventTeamChat        = "team:chat"
	EventTeamSwitch      = "team:switch"
)

// Outbound events.
const (
	EventError           = "error"
	EventConnectionReady = "connection:ready"

	EventUpdated        = "party:updated"
	EventMemberJoined   = "party:member-joined"
	EventMemberLeft     = "party:member-left"
	EventLeft           = "party:left"
	EventGameStarted    = "party:game-started"
	EventCountdown      = "party:countdown"
	EventGameActive     = "party:game-active"
	EventGameEnded      = "party:game-ended"
	EventSpectatorCount = "party:spectator-count"

	EventSpectatorJoined     = "spectator:joined"
	EventSpectatorLeft       = "spectator:left"
	EventSpectatorUserJoined = "spectator:user-joined"
	EventSpectatorUserLeft   = "spectator:user-left"
	EventCameraUpdated       = "spectator:camera-updated"
	EventSpectatorMessage    = "spectator:chat-message"
	EventSpectatorGameUpdate = "spectator:game-update"
	EventSpectatedPartyEnded = "spectator:party-ended"

	EventChallengeCreated   = "team:challenge-created"
	EventTeamsFormed        = "team:teams-formed"
	EventChallengeStarting  = "team:challenge-starting"
	EventChallengeCountdown = "team:challenge-countdown"
	EventChallengeStarted   = "team:challenge-started"
	EventTeamUpdate         = "team:update"
	EventChallengeCompleted = "team:challenge-completed"
	EventTeamMessage        = "team:chat-message"
	EventMemberSwitched     = "team:member-switched"
)

// Room names. Members of a party share partyRoom; spectators talk among
// themselves in spectatorRoom and follow party state through viewerRoom.
func partyRoom(partyID string) string     { return "party:" + partyID }
func spectatorRoom(partyID string) string { return "spectator:" + partyID }
func viewerRoom(partyID string) string    { return "spectating:" + partyID }
