package party

import "errors"

// ErrorCode is the machine readable reason sent with an "error" event.
// Clients match on these strings, so they must never change.
type ErrorCode string

const (
	CodeAuthRequired           ErrorCode = "AUTH_REQUIRED"
	CodeAlreadyInParty         ErrorCode = "ALREADY_IN_PARTY"
	CodePartyNotFound          ErrorCode = "PARTY_NOT_FOUND"
	CodePartyFull              ErrorCode = "PARTY_FULL"
	CodeInvalidInviteCode      ErrorCode = "INVALID_INVITE_CODE"
	CodePartyInGame            ErrorCode = "PARTY_IN_GAME"
	CodeNotInParty             ErrorCode = "NOT_IN_PARTY"
	CodeNotPartyLeader         ErrorCode = "NOT_PARTY_LEADER"
	CodeMembersNotReady        ErrorCode = "MEMBERS_NOT_READY"
	CodePartySystemUnavailable ErrorCode = "PARTY_SYSTEM_UNAVAILABLE"
	CodeSpectatorsNotAllowed   ErrorCode = "SPECTATORS_NOT_ALLOWED"
	CodeAlreadyPartyMember     ErrorCode = "ALREADY_PARTY_MEMBER"
	CodeAlreadySpectating      ErrorCode = "ALREADY_SPECTATING"
	CodeSpectatorLimitReached  ErrorCode = "SPECTATOR_LIMIT_REACHED"
	CodeNotSpectating          ErrorCode = "NOT_SPECTATING"
	CodeUserIDRequired         ErrorCode = "USER_ID_REQUIRED"
	CodeInsufficientPlayers    ErrorCode = "INSUFFICIENT_PLAYERS"
	CodeNotAuthorized          ErrorCode = "NOT_AUTHORIZED"
	CodeInsufficientTeams      ErrorCode = "INSUFFICIENT_TEAMS"
	CodeTeamSwitchDisabled     ErrorCode = "TEAM_SWITCH_DISABLED"
	CodeChallengeActive        ErrorCode = "CHALLENGE_ACTIVE"
	CodeTeamFull               ErrorCode = "TEAM_FULL"
	CodeNotTeamMember          ErrorCode = "NOT_TEAM_MEMBER"
	CodeTeamNotFound           ErrorCode = "TEAM_NOT_FOUND"

	CodeInvalidPayload        ErrorCode = "INVALID_PAYLOAD"
	CodeUnknownEvent          ErrorCode = "UNKNOWN_EVENT"
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
	CodeGameNotActive         ErrorCode = "GAME_NOT_ACTIVE"
	CodeChallengeNotFound     ErrorCode = "CHALLENGE_NOT_FOUND"
	CodeChallengeNotActive    ErrorCode = "CHALLENGE_NOT_ACTIVE"
	CodeObjectiveNotFound     ErrorCode = "OBJECTIVE_NOT_FOUND"
	CodeInvalidFormation      ErrorCode = "INVALID_FORMATION"
	CodeSpectatorChatDisabled ErrorCode = "SPECTATOR_CHAT_DISABLED"
)

// Error is a failure reported to the single connection that caused it.
type Error struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Message: message, Code: code}
}

// CodeOf returns the code carried by err, or CodeInternal for errors that did
// not originate from a validation failure.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

var (
	errAuthRequired     = newError(CodeAuthRequired, "Authentication required")
	errUserIDRequired   = newError(CodeUserIDRequired, "User ID required")
	errUnavailable      = newError(CodePartySystemUnavailable, "Party system is unavailable")
	errAlreadyInParty   = newError(CodeAlreadyInParty, "You are already in a party")
	errPartyNotFound    = newError(CodePartyNotFound, "Party not found")
	errPartyFull        = newError(CodePartyFull, "Party is full")
	errInvalidInvite    = newError(CodeInvalidInviteCode, "Invalid invite code")
	errPartyInGame      = newError(CodePartyInGame, "Party is currently in a game")
	errNotInParty       = newError(CodeNotInParty, "You are not in a party")
	errNotLeader        = newError(CodeNotPartyLeader, "Only the party leader can do that")
	errMembersNotReady  = newError(CodeMembersNotReady, "Not all members are ready")
	errGameNotActive    = newError(CodeGameNotActive, "No active game in this party")
	errNoSpectators     = newError(CodeSpectatorsNotAllowed, "This party does not allow spectators")
	errIsPartyMember    = newError(CodeAlreadyPartyMember, "Party members cannot spectate")
	errAlreadySpectates = newError(CodeAlreadySpectating, "You are already spectating a party")
	errSpectatorLimit   = newError(CodeSpectatorLimitReached, "Spectator limit reached")
	errNotSpectating    = newError(CodeNotSpectating, "You are not spectating a party")
	errChatDisabled     = newError(CodeSpectatorChatDisabled, "Spectator chat is disabled")
	errNotAuthorized    = newError(CodeNotAuthorized, "Only the party leader can manage team challenges")
	errNoPlayers        = newError(CodeInsufficientPlayers, "Not enough players for a team challenge")
	errNoTeams          = newError(CodeInsufficientTeams, "At least two teams are required")
	errSwitchDisabled   = newError(CodeTeamSwitchDisabled, "Team switching is disabled")
	errChallengeActive  = newError(CodeChallengeActive, "A team challenge is already running")
	errTeamFull         = newError(CodeTeamFull, "Team is full")
	errNotTeamMember    = newError(CodeNotTeamMember, "You are not on that team")
	errTeamNotFound     = newError(CodeTeamNotFound, "Team not found")
	errNoChallenge      = newError(CodeChallengeNotFound, "No team challenge for this party")
	errChallengeIdle    = newError(CodeChallengeNotActive, "Team challenge is not active")
	errNoObjective      = newError(CodeObjectiveNotFound, "Objective not found")
	errInternal         = newError(CodeInternal, "Internal server error")
)
