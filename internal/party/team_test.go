package party

import (
	"testing"
	"time"

	"aimtrainer/backend/internal/auth"
	"aimtrainer/backend/internal/hub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// formedChallenge creates a party of users, sets up a challenge and forms
// teams with the identity shuffle, so four users split into [a b] and [c d].
func formedChallenge(t *testing.T, h *harness, req map[string]interface{}, users ...*hub.Client) (Party, *TeamChallenge) {
	t.Helper()

	p := h.partyWith(users...)
	if req == nil {
		req = map[string]interface{}{}
	}
	if _, ok := req["challengeType"]; !ok {
		req["challengeType"] = "team-vs-team"
	}
	h.send(users[0], EventCreateChallenge, req)
	require.Empty(t, h.errorCode(users[0]))
	h.send(users[0], EventFormTeams, map[string]string{"formation": "random"})
	require.Empty(t, h.errorCode(users[0]))
	for _, c := range users {
		h.drain(c)
	}
	ch, ok := h.eng.reg.Challenge(p.ID)
	require.True(t, ok)
	return p, ch
}

func startChallenge(t *testing.T, h *harness, ch *TeamChallenge, users ...*hub.Client) {
	t.Helper()

	h.send(users[0], EventStartChallenge, nil)
	require.Empty(t, h.errorCode(users[0]))
	h.clock.Advance(time.Duration(h.eng.cfg.ChallengeCountdownSeconds) * time.Second)
	require.Equal(t, ChallengeActive, ch.Status)
	for _, c := range users {
		h.drain(c)
	}
}

func TestCreateChallenge_Rejections(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b := h.connect("a"), h.connect("b")
	solo := h.connect("solo")
	p := h.partyWith(a, b)
	h.partyWith(solo)

	h.send(b, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})
	assert.Equal(t, CodeNotAuthorized, h.errorCode(b))

	h.send(solo, EventCreateChallenge, map[string]string{"partyId": p.ID, "challengeType": "team-vs-team"})
	assert.Equal(t, CodeNotAuthorized, h.errorCode(solo), "only the leader of the named party may act")

	h.send(solo, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})
	assert.Equal(t, CodeInsufficientPlayers, h.errorCode(solo))

	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-deathmatch"})
	assert.Equal(t, CodeInvalidPayload, h.errorCode(a))

	h.send(a, EventCreateChallenge, map[string]interface{}{
		"challengeType": "team-vs-team",
		"settings":      map[string]int{"minPlayersPerTeam": 2},
	})
	assert.Equal(t, CodeInsufficientPlayers, h.errorCode(a))

	nobody := h.connect("nobody")
	h.send(nobody, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})
	assert.Equal(t, CodePartyNotFound, h.errorCode(nobody))

	_, ok := h.eng.reg.Challenge(p.ID)
	assert.False(t, ok)
}

func TestCreateChallenge_BroadcastsTemplate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b := h.connect("a"), h.connect("b")
	p := h.partyWith(a, b)

	h.send(a, EventCreateChallenge, map[string]interface{}{
		"challengeType": "team-objectives",
		"settings":      map[string]interface{}{"duration": 120, "allowTeamSwitching": false},
	})

	created := decodeAs[ChallengeEvent](t, last(t, h.drain(b), EventChallengeCreated))
	ch := created.Challenge
	assert.Equal(t, p.ID, ch.PartyID)
	assert.Equal(t, ChallengeTeamObjectives, ch.Type)
	assert.Equal(t, ChallengeSetup, ch.Status)
	assert.Empty(t, ch.Teams)
	assert.Equal(t, ChallengeSettings{
		Duration:           120,
		MaxTeams:           2,
		MinPlayersPerTeam:  1,
		MaxPlayersPerTeam:  4,
		AllowTeamSwitching: false,
	}, ch.Settings)
	require.Len(t, ch.Objectives, 2)
	assert.Equal(t, ObjectiveAccuracy, ch.Objectives[0].Type)
	assert.Equal(t, 85.0, ch.Objectives[0].Target)
	assert.Equal(t, 150, ch.Objectives[0].Reward.Points)
	assert.Equal(t, ObjectiveCapture, ch.Objectives[1].Type)
	assert.Equal(t, 200, ch.Objectives[1].Reward.Points)
}

func TestObjectiveTemplates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   ChallengeType
		types  []ObjectiveType
		points int
	}{
		{ChallengeTeamVsTeam, []ObjectiveType{ObjectiveElimination}, 100},
		{ChallengeTeamObjectives, []ObjectiveType{ObjectiveAccuracy, ObjectiveCapture}, 350},
		{ChallengeTeamRelay, []ObjectiveType{ObjectiveRelay}, 300},
		{ChallengeTeamSurvival, []ObjectiveType{ObjectiveSurvival}, 250},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			objectives, ok := objectiveTemplate(tt.kind)
			require.True(t, ok)
			var types []ObjectiveType
			points := 0
			for _, o := range objectives {
				types = append(types, o.Type)
				points += o.Reward.Points
				assert.Positive(t, o.Target)
				assert.False(t, o.IsCompleted)
			}
			assert.Equal(t, tt.types, types)
			assert.Equal(t, tt.points, points)
		})
	}

	_, ok := objectiveTemplate("free-for-all")
	assert.False(t, ok)
}

func TestFormTeams_Random(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	p := h.partyWith(a, b, c, d)
	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-relay"})
	h.drain(b)

	h.send(a, EventFormTeams, map[string]string{"formation": "random"})

	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(b), EventTeamsFormed))
	assert.Equal(t, p.ID, formed.PartyID)
	teams := formed.Challenge.Teams
	require.Len(t, teams, 2)
	assert.Equal(t, "Team 1", teams[0].Name)
	assert.Equal(t, "Team 2", teams[1].Name)
	assert.NotEqual(t, teams[0].Color, teams[1].Color)
	assert.Equal(t, []string{"a", "b"}, teams[0].MemberIDs)
	assert.Equal(t, []string{"c", "d"}, teams[1].MemberIDs)
	for _, team := range teams {
		require.Len(t, team.Objectives, 1)
		assert.Equal(t, ObjectiveRelay, team.Objectives[0].Type)
		assert.Zero(t, team.Score)
	}
}

func TestFormTeams_SkillBased(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	levels := map[string]int{"a": 1, "b": 9, "c": 5, "d": 3}
	var users []*hub.Client
	for _, id := range []string{"a", "b", "c", "d"} {
		users = append(users, h.connectAs(auth.Identity{UserID: id, Username: id, Level: levels[id]}))
	}
	h.partyWith(users...)
	h.send(users[0], EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})

	h.send(users[0], EventFormTeams, map[string]string{"formation": "skill-based"})

	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(users[0]), EventTeamsFormed))
	require.Len(t, formed.Challenge.Teams, 2)
	assert.Equal(t, []string{"b", "c"}, formed.Challenge.Teams[0].MemberIDs)
	assert.Equal(t, []string{"d", "a"}, formed.Challenge.Teams[1].MemberIDs)
}

func TestFormTeams_CaptainPickFallsBackToRandom(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b := h.connect("a"), h.connect("b")
	h.partyWith(a, b)
	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})

	h.send(a, EventFormTeams, map[string]string{"formation": "captain-pick"})

	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(a), EventTeamsFormed))
	require.Len(t, formed.Challenge.Teams, 2)
	assert.Equal(t, []string{"a"}, formed.Challenge.Teams[0].MemberIDs)
	assert.Equal(t, []string{"b"}, formed.Challenge.Teams[1].MemberIDs)
}

func TestFormTeams_Manual(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c := h.connect("a"), h.connect("b"), h.connect("c")
	h.partyWith(a, b, c)
	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})
	h.drain(a)

	h.send(a, EventFormTeams, map[string]interface{}{
		"formation": "manual",
		"teams":     [][]string{{"a", "ghost", "c"}, {"c", "b"}, {}},
	})

	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(a), EventTeamsFormed))
	require.Len(t, formed.Challenge.Teams, 2)
	assert.Equal(t, []string{"a", "c"}, formed.Challenge.Teams[0].MemberIDs)
	assert.Equal(t, []string{"b"}, formed.Challenge.Teams[1].MemberIDs)

	h.send(a, EventFormTeams, map[string]interface{}{"formation": "manual", "teams": [][]string{{"ghost"}}})
	assert.Equal(t, CodeInvalidFormation, h.errorCode(a))

	h.send(a, EventFormTeams, map[string]string{"formation": "draft"})
	assert.Equal(t, CodeInvalidFormation, h.errorCode(a))
}

func TestFormTeams_ManualHonorsTeamLimits(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var users []*hub.Client
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		users = append(users, h.connect(id))
	}
	h.partyWith(users...)
	lead := users[0]
	h.send(lead, EventCreateChallenge, map[string]interface{}{
		"challengeType": "team-vs-team",
		"settings":      map[string]int{"maxTeams": 2, "minPlayersPerTeam": 2, "maxPlayersPerTeam": 2},
	})
	h.drain(lead)

	h.send(lead, EventFormTeams, map[string]interface{}{
		"formation": "manual",
		"teams":     [][]string{{"a", "b"}, {"c"}, {"d", "e"}},
	})
	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(lead), EventTeamsFormed))
	require.Len(t, formed.Challenge.Teams, 2, "the single-player team is dropped")
	assert.Equal(t, []string{"a", "b"}, formed.Challenge.Teams[0].MemberIDs)
	assert.Equal(t, []string{"d", "e"}, formed.Challenge.Teams[1].MemberIDs)

	h.send(lead, EventFormTeams, map[string]interface{}{
		"formation": "manual",
		"teams":     [][]string{{"a", "b", "c"}, {"d", "e"}},
	})
	assert.Equal(t, CodeInvalidFormation, h.errorCode(lead))

	h.send(lead, EventFormTeams, map[string]interface{}{
		"formation": "manual",
		"teams":     [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}},
	})
	assert.Equal(t, CodeInvalidFormation, h.errorCode(lead), "more teams than maxTeams")

	ch, _ := h.eng.reg.Challenge(formed.PartyID)
	require.Len(t, ch.Teams, 2, "a rejected formation keeps the previous teams")
	assert.Equal(t, []string{"d", "e"}, ch.Teams[1].MemberIDs)
}

func TestFormTeams_DropsUndersizedGroups(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	var users []*hub.Client
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		users = append(users, h.connect(id))
	}
	h.partyWith(users...)
	h.send(users[0], EventCreateChallenge, map[string]interface{}{
		"challengeType": "team-vs-team",
		"settings":      map[string]int{"maxTeams": 3, "minPlayersPerTeam": 2},
	})

	h.send(users[0], EventFormTeams, map[string]string{"formation": "random"})

	formed := decodeAs[ChallengeEvent](t, last(t, h.drain(users[0]), EventTeamsFormed))
	require.Len(t, formed.Challenge.Teams, 2)
	assert.Equal(t, []string{"a", "b"}, formed.Challenge.Teams[0].MemberIDs)
	assert.Equal(t, []string{"c", "d"}, formed.Challenge.Teams[1].MemberIDs)
}

func TestFormTeams_NeedsChallenge(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b := h.connect("a"), h.connect("b")
	h.partyWith(a, b)

	h.send(a, EventFormTeams, map[string]string{"formation": "random"})
	assert.Equal(t, CodeChallengeNotFound, h.errorCode(a))

	h.send(b, EventFormTeams, map[string]string{"formation": "random"})
	assert.Equal(t, CodeNotAuthorized, h.errorCode(b))
}

func TestStartChallenge_CountdownThenActive(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b := h.connect("a"), h.connect("b")
	h.partyWith(a, b)
	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-vs-team"})

	h.send(a, EventStartChallenge, nil)
	assert.Equal(t, CodeInsufficientTeams, h.errorCode(a))

	h.send(a, EventFormTeams, nil)
	h.drain(b)

	h.send(a, EventStartChallenge, nil)
	starting := decodeAs[ChallengeStarting](t, last(t, h.drain(b), EventChallengeStarting))
	assert.Equal(t, 5, starting.Countdown)

	h.send(a, EventStartChallenge, nil)
	assert.Equal(t, CodeChallengeActive, h.errorCode(a))
	h.send(a, EventFormTeams, nil)
	assert.Equal(t, CodeChallengeActive, h.errorCode(a))
	h.send(a, EventCreateChallenge, map[string]string{"challengeType": "team-relay"})
	assert.Equal(t, CodeChallengeActive, h.errorCode(a))

	var counts []int
	for i := 0; i < 4; i++ {
		h.clock.Advance(time.Second)
		counts = append(counts, decodeAs[ChallengeTick](t, last(t, h.drain(b), EventChallengeCountdown)).Count)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, counts)

	h.clock.Advance(time.Second)
	msgs := h.drain(b)
	assert.Equal(t, []string{EventChallengeStarted}, eventTypes(msgs))
	started := decodeAs[ChallengeEvent](t, msgs[0])
	assert.Equal(t, ChallengeActive, started.Challenge.Status)
	require.NotNil(t, started.Challenge.StartedAt)
	assert.Equal(t, h.clock.Now(), *started.Challenge.StartedAt)
}

func TestChallenge_EarlyWinWhenTeamCompletesObjectives(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	p, ch := formedChallenge(t, h, nil, a, b, c, d)
	ch.Objectives[0].Target = 5
	startChallenge(t, h, ch, a, b, c, d)
	teamA, teamB := ch.Teams[0], ch.Teams[1]

	h.send(b, EventObjective, map[string]interface{}{"teamId": teamA.ID, "objectiveId": "elimination", "progress": 3})
	update := decodeAs[TeamUpdate](t, last(t, h.drain(c), EventTeamUpdate))
	assert.False(t, update.Completed)
	assert.Equal(t, 3.0, update.Team.Objectives[0].Progress)
	assert.Zero(t, update.Team.Score)
	h.drain(d)

	h.send(a, EventObjective, map[string]interface{}{"teamId": teamA.ID, "objectiveId": "elimination", "progress": 5})

	msgs := h.drain(d)
	assert.Equal(t, []string{EventTeamUpdate, EventChallengeCompleted}, eventTypes(msgs))
	update = decodeAs[TeamUpdate](t, msgs[0])
	assert.True(t, update.Completed)
	assert.Equal(t, 100, update.Team.Score)

	done := decodeAs[ChallengeEvent](t, msgs[1]).Challenge
	assert.Equal(t, ChallengeCompleted, done.Status)
	assert.Equal(t, teamA.ID, done.WinnerID)
	require.Len(t, done.Results, 2)
	assert.Equal(t, TeamResult{
		TeamID: teamA.ID, TeamName: "Team 1", Rank: 1, Score: 100,
		Multiplier: 1.5, XP: 300, Points: 150, MemberIDs: []string{"a", "b"},
	}, done.Results[0])
	assert.Equal(t, teamB.ID, done.Results[1].TeamID)
	assert.Equal(t, 2, done.Results[1].Rank)
	assert.Equal(t, 1.2, done.Results[1].Multiplier)
	assert.Zero(t, done.Results[1].XP)

	assert.Zero(t, h.clock.Pending(), "the duration timer is cancelled")
	h.send(a, EventObjective, map[string]interface{}{"teamId": teamA.ID, "objectiveId": "elimination", "progress": 5})
	assert.Equal(t, CodeChallengeNotActive, h.errorCode(a))

	h.waitSaves()
	require.Len(t, h.store.challenges, 1)
	saved := h.store.challenges[0]
	assert.Equal(t, p.ID, saved.PartyID)
	assert.Equal(t, teamA.ID, saved.WinnerTeamID)
	assert.Equal(t, 150, saved.Teams[0].Points)

	h.send(a, EventStartChallenge, nil)
	assert.Empty(t, h.errorCode(a), "a completed challenge can be replayed")
	assert.Zero(t, ch.Teams[0].Score)
	assert.False(t, ch.Teams[0].Objectives[0].IsCompleted)
}

func TestObjectiveProgress_ClampsAndIgnoresCompleted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, map[string]interface{}{"challengeType": "team-objectives"}, a, b, c, d)
	startChallenge(t, h, ch, a, b, c, d)
	team := ch.Teams[1]

	h.send(c, EventObjective, map[string]interface{}{"teamId": team.ID, "objectiveId": "accuracy", "progress": -10})
	assert.Zero(t, decodeAs[TeamUpdate](t, last(t, h.drain(c), EventTeamUpdate)).Team.Objectives[0].Progress)

	h.send(c, EventObjective, map[string]interface{}{"teamId": team.ID, "objectiveId": "capture", "progress": 99})
	update := decodeAs[TeamUpdate](t, last(t, h.drain(c), EventTeamUpdate))
	assert.True(t, update.Completed)
	assert.Equal(t, 10.0, update.Team.Objectives[1].Progress)
	assert.Equal(t, 200, update.Team.Score)
	h.drain(d)

	h.send(d, EventObjective, map[string]interface{}{"teamId": team.ID, "objectiveId": "capture", "progress": 10})
	assert.Empty(t, h.drain(d), "progress on a completed objective is ignored")
	assert.Equal(t, 200, ch.Teams[1].Score)
	assert.Equal(t, ChallengeActive, ch.Status)
}

func TestObjectiveProgress_Rejections(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, nil, a, b, c, d)
	teamA := ch.Teams[0]
	progress := func(teamID, objectiveID string) map[string]interface{} {
		return map[string]interface{}{"teamId": teamID, "objectiveId": objectiveID, "progress": 1}
	}

	outsider := h.connect("z")
	h.send(outsider, EventObjective, progress(teamA.ID, "elimination"))
	assert.Equal(t, CodeNotInParty, h.errorCode(outsider))

	x, y := h.connect("x"), h.connect("y")
	h.partyWith(x, y)
	h.send(x, EventObjective, progress(teamA.ID, "elimination"))
	assert.Equal(t, CodeChallengeNotFound, h.errorCode(x))

	h.send(a, EventObjective, progress(teamA.ID, "elimination"))
	assert.Equal(t, CodeChallengeNotActive, h.errorCode(a))

	startChallenge(t, h, ch, a, b, c, d)

	h.send(a, EventObjective, progress("nope", "elimination"))
	assert.Equal(t, CodeTeamNotFound, h.errorCode(a))
	h.send(c, EventObjective, progress(teamA.ID, "elimination"))
	assert.Equal(t, CodeNotTeamMember, h.errorCode(c))
	h.send(a, EventObjective, progress(teamA.ID, "capture"))
	assert.Equal(t, CodeObjectiveNotFound, h.errorCode(a))
}

func TestChallenge_DurationTimeoutPicksBestScore(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, map[string]interface{}{
		"challengeType": "team-objectives",
		"settings":      map[string]int{"duration": 60},
	}, a, b, c, d)
	startChallenge(t, h, ch, a, b, c, d)
	teamB := ch.Teams[1]

	h.send(d, EventObjective, map[string]interface{}{"teamId": teamB.ID, "objectiveId": "capture", "progress": 10})
	h.drain(a)

	h.clock.Advance(59 * time.Second)
	assert.Empty(t, find(h.drain(a), EventChallengeCompleted))

	h.clock.Advance(time.Second)
	done := decodeAs[ChallengeEvent](t, last(t, h.drain(a), EventChallengeCompleted)).Challenge
	assert.Equal(t, teamB.ID, done.WinnerID)
	assert.Equal(t, teamB.ID, done.Results[0].TeamID)
	assert.Equal(t, 200, done.Results[0].Score)
	assert.Equal(t, 600, done.Results[0].XP)
	require.NotNil(t, done.EndedAt)
	assert.Equal(t, time.Minute, done.EndedAt.Sub(*done.StartedAt))
}

func TestTeamChat_OnlyReachesTeammates(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, nil, a, b, c, d)
	teamA := ch.Teams[0]

	h.send(b, EventTeamChat, map[string]string{"teamId": teamA.ID, "message": "push B"})

	for _, mate := range []*hub.Client{a, b} {
		msg := decodeAs[ChatMessage](t, last(t, h.drain(mate), EventTeamMessage))
		assert.Equal(t, "push B", msg.Message)
		assert.Equal(t, teamA.ID, msg.TeamID)
		assert.Equal(t, "b", msg.UserID)
	}
	assert.Empty(t, h.drain(c))
	assert.Empty(t, h.drain(d))

	h.send(c, EventTeamChat, map[string]string{"teamId": teamA.ID, "message": "hi"})
	assert.Equal(t, CodeNotTeamMember, h.errorCode(c))
	h.send(a, EventTeamChat, map[string]string{"teamId": teamA.ID, "message": ""})
	assert.Equal(t, CodeInvalidPayload, h.errorCode(a))
}

func TestTeamSwitch(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, nil, a, b, c, d)
	teamA, teamB := ch.Teams[0].ID, ch.Teams[1].ID

	h.send(c, EventTeamSwitch, map[string]string{"fromTeamId": teamA, "toTeamId": teamB})
	assert.Equal(t, CodeNotTeamMember, h.errorCode(c))
	h.send(c, EventTeamSwitch, map[string]string{"fromTeamId": teamB, "toTeamId": "nope"})
	assert.Equal(t, CodeTeamNotFound, h.errorCode(c))

	h.send(c, EventTeamSwitch, map[string]string{"fromTeamId": teamB, "toTeamId": teamA})

	switched := decodeAs[MemberSwitched](t, last(t, h.drain(a), EventMemberSwitched))
	assert.Equal(t, "c", switched.UserID)
	assert.Equal(t, teamB, switched.FromTeamID)
	assert.Equal(t, teamA, switched.ToTeamID)
	assert.Equal(t, []string{"a", "b", "c"}, switched.Teams[0].MemberIDs)
	assert.Equal(t, []string{"d"}, switched.Teams[1].MemberIDs)
	h.drain(d)

	h.send(d, EventTeamSwitch, map[string]string{"fromTeamId": teamB, "toTeamId": teamB})
	assert.Empty(t, h.drain(d), "switching to the same team is a no-op")

	startChallenge(t, h, ch, a, b, c, d)
	h.send(d, EventTeamSwitch, map[string]string{"fromTeamId": teamB, "toTeamId": teamA})
	assert.Equal(t, CodeChallengeActive, h.errorCode(d))
}

func TestTeamSwitch_Limits(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	_, ch := formedChallenge(t, h, map[string]interface{}{
		"settings": map[string]int{"maxPlayersPerTeam": 2},
	}, a, b, c, d)
	h.send(c, EventTeamSwitch, map[string]string{"fromTeamId": ch.Teams[1].ID, "toTeamId": ch.Teams[0].ID})
	assert.Equal(t, CodeTeamFull, h.errorCode(c))

	h2 := newHarness(t)
	w, x := h2.connect("w"), h2.connect("x")
	_, locked := formedChallenge(t, h2, map[string]interface{}{
		"settings": map[string]bool{"allowTeamSwitching": false},
	}, w, x)
	h2.send(x, EventTeamSwitch, map[string]string{"fromTeamId": locked.Teams[1].ID, "toTeamId": locked.Teams[0].ID})
	assert.Equal(t, CodeTeamSwitchDisabled, h2.errorCode(x))
}

func TestChallenge_LeavingRemovesTeamMember(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a, b, c, d := h.connect("a"), h.connect("b"), h.connect("c"), h.connect("d")
	p, ch := formedChallenge(t, h, nil, a, b, c, d)

	h.send(d, EventLeave, nil)

	assert.Equal(t, []string{"c"}, ch.Teams[1].MemberIDs)
	assert.Equal(t, []string{"a", "b"}, ch.Teams[0].MemberIDs)

	h.send(a, EventLeave, nil)
	h.send(b, EventLeave, nil)
	h.send(c, EventLeave, nil)
	_, ok := h.eng.reg.Challenge(p.ID)
	assert.False(t, ok, "the challenge goes with its party")
	h.checkInvariants()
}
