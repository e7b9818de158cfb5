package party

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"aimtrainer/backend/internal/hub"
)

var teamColors = []string{"#ef4444", "#3b82f6", "#22c55e", "#eab308", "#a855f7", "#f97316", "#06b6d4", "#ec4899"}

// placementMultipliers are applied to the XP and point rewards of the
// first three teams.
var placementMultipliers = []float64{1.5, 1.2, 1.1}

func placementMultiplier(rank int) float64 {
	if rank >= 1 && rank <= len(placementMultipliers) {
		return placementMultipliers[rank-1]
	}
	return 1.0
}

// objectiveTemplate returns the objectives every team of a challenge type
// has to complete.
func objectiveTemplate(t ChallengeType) ([]Objective, bool) {
	switch t {
	case ChallengeTeamVsTeam:
		return []Objective{
			{ID: "elimination", Type: ObjectiveElimination, Description: "Eliminate 50 targets as a team", Target: 50, Reward: Reward{Points: 100}},
		}, true
	case ChallengeTeamObjectives:
		return []Objective{
			{ID: "accuracy", Type: ObjectiveAccuracy, Description: "Reach 85% team accuracy", Target: 85, Reward: Reward{Points: 150}},
			{ID: "capture", Type: ObjectiveCapture, Description: "Capture 10 zones", Target: 10, Reward: Reward{Points: 200}},
		}, true
	case ChallengeTeamRelay:
		return []Objective{
			{ID: "relay", Type: ObjectiveRelay, Description: "Complete the relay with 100 hits", Target: 100, Reward: Reward{Points: 300}},
		}, true
	case ChallengeTeamSurvival:
		return []Objective{
			{ID: "survival", Type: ObjectiveSurvival, Description: "Survive for 180 seconds", Target: 180, Reward: Reward{Points: 250}},
		}, true
	}
	return nil, false
}

func challengeSettingsFrom(req *challengeSettings) ChallengeSettings {
	s := ChallengeSettings{
		Duration:           300,
		MaxTeams:           2,
		MinPlayersPerTeam:  1,
		MaxPlayersPerTeam:  4,
		AllowTeamSwitching: true,
	}
	if req == nil {
		return s
	}
	if req.Duration > 0 {
		s.Duration = req.Duration
	}
	if req.MaxTeams >= 2 {
		s.MaxTeams = min(req.MaxTeams, len(teamColors))
	}
	if req.MinPlayersPerTeam > 0 {
		s.MinPlayersPerTeam = req.MinPlayersPerTeam
	}
	if req.MaxPlayersPerTeam > 0 {
		s.MaxPlayersPerTeam = req.MaxPlayersPerTeam
	}
	if s.MaxPlayersPerTeam < s.MinPlayersPerTeam {
		s.MaxPlayersPerTeam = s.MinPlayersPerTeam
	}
	if req.AllowTeamSwitching != nil {
		s.AllowTeamSwitching = *req.AllowTeamSwitching
	}
	return s
}

// leaderParty resolves the party named in a team request, falling back to
// the caller's own party, and requires the caller to lead it.
func (e *Engine) leaderParty(userID, partyID string) (*Party, error) {
	var (
		p  *Party
		ok bool
	)
	if partyID != "" {
		p, ok = e.reg.Get(partyID)
	} else {
		p, ok = e.reg.PartyOf(userID)
	}
	if !ok {
		return nil, errPartyNotFound
	}
	if !p.IsLeader(userID) {
		return nil, errNotAuthorized
	}
	return p, nil
}

func (e *Engine) handleCreateChallenge(c *hub.Client, payload json.RawMessage) error {
	var req createChallengeRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	p, err := e.leaderParty(c.Identity.UserID, req.PartyID)
	if err != nil {
		return err
	}
	if existing, ok := e.reg.Challenge(p.ID); ok && existing.running() {
		return errChallengeActive
	}
	template, ok := objectiveTemplate(req.ChallengeType)
	if !ok {
		return newError(CodeInvalidPayload, "Unknown challenge type")
	}
	settings := challengeSettingsFrom(req.Settings)
	if len(p.Members) < settings.MinPlayersPerTeam*2 {
		return errNoPlayers
	}

	ch := &TeamChallenge{
		ID:         e.reg.newID(),
		PartyID:    p.ID,
		Type:       req.ChallengeType,
		Settings:   settings,
		Teams:      []Team{},
		Objectives: template,
		Status:     ChallengeSetup,
		CreatedAt:  e.sched.Now(),
	}
	e.cancelChallengeTimers(p.ID)
	e.reg.SetChallenge(ch)

	e.toParty(p.ID, EventChallengeCreated, ChallengeEvent{PartyID: p.ID, Challenge: ch.Clone()})

	e.log.Debug().Str("party_id", p.ID).Str("challenge_id", ch.ID).Str("type", string(ch.Type)).Msg("team challenge created")
	return nil
}

func (e *Engine) handleFormTeams(c *hub.Client, payload json.RawMessage) error {
	var req formTeamsRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	p, err := e.leaderParty(c.Identity.UserID, req.PartyID)
	if err != nil {
		return err
	}
	ch, ok := e.reg.Challenge(p.ID)
	if !ok {
		return errNoChallenge
	}
	if ch.running() {
		return errChallengeActive
	}

	groups, err := e.formGroups(p, ch.Settings, req)
	if err != nil {
		return err
	}

	ch.Teams = make([]Team, 0, len(groups))
	for i, ids := range groups {
		ch.Teams = append(ch.Teams, Team{
			ID:         e.reg.newID(),
			Name:       "Team " + strconv.Itoa(i+1),
			Color:      teamColors[i%len(teamColors)],
			MemberIDs:  ids,
			Objectives: append([]Objective(nil), ch.Objectives...),
		})
	}
	ch.Status = ChallengeSetup
	ch.WinnerID = ""
	ch.Results = nil
	ch.StartedAt = nil
	ch.EndedAt = nil

	e.toParty(p.ID, EventTeamsFormed, ChallengeEvent{PartyID: p.ID, Challenge: ch.Clone()})
	return nil
}

func (e *Engine) formGroups(p *Party, s ChallengeSettings, req formTeamsRequest) ([][]string, error) {
	switch req.Formation {
	case FormationRandom, FormationCaptainPick, "":
		// Captain pick has no picking phase yet and is formed like random.
		ids := make([]string, len(p.Members))
		for i, m := range p.Members {
			ids[i] = m.UserID
		}
		e.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		return chunk(ids, s), nil

	case FormationSkillBased:
		members := append([]Member(nil), p.Members...)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Level > members[j].Level
		})
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.UserID
		}
		return chunk(ids, s), nil

	case FormationManual:
		seen := make(map[string]bool)
		var groups [][]string
		for _, team := range req.Teams {
			var ids []string
			for _, id := range team {
				if seen[id] || !p.HasMember(id) {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
			}
			if len(ids) == 0 || len(ids) < s.MinPlayersPerTeam {
				continue
			}
			if len(ids) > s.MaxPlayersPerTeam {
				return nil, newError(CodeInvalidFormation, "Manual team exceeds the maximum team size")
			}
			groups = append(groups, ids)
		}
		if len(groups) == 0 {
			return nil, newError(CodeInvalidFormation, "Manual formation has no valid teams")
		}
		if len(groups) > s.MaxTeams {
			return nil, newError(CodeInvalidFormation, "Manual formation has too many teams")
		}
		return groups, nil
	}
	return nil, newError(CodeInvalidFormation, "Unknown formation")
}

// chunk slices ids into at most MaxTeams groups of equal-ish size and drops
// groups smaller than MinPlayersPerTeam.
func chunk(ids []string, s ChallengeSettings) [][]string {
	if len(ids) == 0 {
		return nil
	}
	size := (len(ids) + s.MaxTeams - 1) / s.MaxTeams
	var groups [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		group := append([]string(nil), ids[start:end]...)
		if len(group) < s.MinPlayersPerTeam {
			continue
		}
		groups = append(groups, group)
	}
	return groups
}

func (e *Engine) handleStartChallenge(c *hub.Client, payload json.RawMessage) error {
	var req challengeRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	p, err := e.leaderParty(c.Identity.UserID, req.PartyID)
	if err != nil {
		return err
	}
	ch, ok := e.reg.Challenge(p.ID)
	if !ok {
		return errNoChallenge
	}
	if ch.running() {
		return errChallengeActive
	}
	if len(ch.Teams) < 2 {
		return errNoTeams
	}

	for i := range ch.Teams {
		ch.Teams[i].Score = 0
		ch.Teams[i].Objectives = append([]Objective(nil), ch.Objectives...)
	}
	ch.WinnerID = ""
	ch.Results = nil
	ch.StartedAt = nil
	ch.EndedAt = nil
	ch.Status = ChallengeCountdown

	count := e.cfg.ChallengeCountdownSeconds
	e.toParty(p.ID, EventChallengeStarting, ChallengeStarting{PartyID: p.ID, ChallengeID: ch.ID, Countdown: count})
	e.challengeCountdown(p.ID, ch.ID, count)
	return nil
}

func (e *Engine) currentChallenge(partyID, challengeID string) (*TeamChallenge, bool) {
	ch, ok := e.reg.Challenge(partyID)
	if !ok || ch.ID != challengeID {
		return nil, false
	}
	return ch, true
}

// challengeCountdown ticks once per second. The starting event already
// announced the full count, so ticks carry remaining-1 down to 1.
func (e *Engine) challengeCountdown(partyID, challengeID string, remaining int) {
	if remaining <= 0 {
		if ch, ok := e.currentChallenge(partyID, challengeID); ok && ch.Status == ChallengeCountdown {
			e.activateChallenge(ch)
		}
		return
	}
	e.schedule(timerKey(partyID, "challenge-countdown"), time.Second, func() {
		ch, ok := e.currentChallenge(partyID, challengeID)
		if !ok || ch.Status != ChallengeCountdown {
			return
		}
		if remaining-1 > 0 {
			e.toParty(partyID, EventChallengeCountdown, ChallengeTick{
				PartyID:     partyID,
				ChallengeID: challengeID,
				Count:       remaining - 1,
			})
		}
		e.challengeCountdown(partyID, challengeID, remaining-1)
	})
}

func (e *Engine) activateChallenge(ch *TeamChallenge) {
	now := e.sched.Now()
	ch.Status = ChallengeActive
	ch.StartedAt = &now

	e.toParty(ch.PartyID, EventChallengeStarted, ChallengeEvent{PartyID: ch.PartyID, Challenge: ch.Clone()})

	partyID, challengeID := ch.PartyID, ch.ID
	e.schedule(timerKey(partyID, "challenge-timer"), time.Duration(ch.Settings.Duration)*time.Second, func() {
		if ch, ok := e.currentChallenge(partyID, challengeID); ok && ch.Status == ChallengeActive {
			e.completeChallenge(ch, "")
		}
	})
}

func (e *Engine) handleObjectiveProgress(c *hub.Client, payload json.RawMessage) error {
	var req progressRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	uid := c.Identity.UserID
	p, ok := e.reg.PartyOf(uid)
	if !ok {
		return errNotInParty
	}
	ch, ok := e.reg.Challenge(p.ID)
	if !ok {
		return errNoChallenge
	}
	if ch.Status != ChallengeActive {
		return errChallengeIdle
	}
	team, ok := ch.team(req.TeamID)
	if !ok {
		return errTeamNotFound
	}
	if !team.hasMember(uid) {
		return errNotTeamMember
	}
	obj, ok := team.objective(req.ObjectiveID)
	if !ok {
		return errNoObjective
	}
	if obj.IsCompleted {
		return nil
	}

	obj.Progress = math.Max(0, math.Min(req.Progress, obj.Target))
	completed := obj.Progress >= obj.Target
	if completed {
		obj.IsCompleted = true
		team.Score += obj.Reward.Points
	}

	e.toParty(p.ID, EventTeamUpdate, TeamUpdate{
		PartyID:     p.ID,
		ChallengeID: ch.ID,
		Team:        team.clone(),
		ObjectiveID: obj.ID,
		Completed:   completed,
	})

	if completed && team.allCompleted() {
		e.completeChallenge(ch, team.ID)
	}
	return nil
}

// completeChallenge ranks the teams and publishes the results. An empty
// winnerID means the duration ran out and the best score wins.
func (e *Engine) completeChallenge(ch *TeamChallenge, winnerID string) {
	e.cancelChallengeTimers(ch.PartyID)

	ranked := make([]Team, len(ch.Teams))
	copy(ranked, ch.Teams)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ID == winnerID {
			return true
		}
		if ranked[j].ID == winnerID {
			return false
		}
		return ranked[i].Score > ranked[j].Score
	})

	results := make([]TeamResult, len(ranked))
	for i, t := range ranked {
		rank := i + 1
		mult := placementMultiplier(rank)
		results[i] = TeamResult{
			TeamID:     t.ID,
			TeamName:   t.Name,
			Rank:       rank,
			Score:      t.Score,
			Multiplier: mult,
			XP:         int(math.Round(float64(t.Score) * 2 * mult)),
			Points:     int(math.Round(float64(t.Score) * mult)),
			MemberIDs:  append([]string(nil), t.MemberIDs...),
		}
	}
	if winnerID == "" && len(results) > 0 {
		winnerID = results[0].TeamID
	}

	now := e.sched.Now()
	ch.Status = ChallengeCompleted
	ch.WinnerID = winnerID
	ch.Results = results
	ch.EndedAt = &now

	snapshot := ch.Clone()
	e.toParty(ch.PartyID, EventChallengeCompleted, ChallengeEvent{PartyID: ch.PartyID, Challenge: snapshot})

	result := ChallengeResult{
		PartyID:      ch.PartyID,
		ChallengeID:  ch.ID,
		Type:         ch.Type,
		WinnerTeamID: winnerID,
		EndedAt:      now,
		Teams:        snapshot.Results,
	}
	if ch.StartedAt != nil {
		result.StartedAt = *ch.StartedAt
	}
	e.persist("challenge", func(ctx context.Context) error {
		return e.store.SaveChallengeResult(ctx, result)
	})

	e.log.Debug().Str("party_id", ch.PartyID).Str("challenge_id", ch.ID).Str("winner", winnerID).Msg("team challenge completed")
}

func (e *Engine) cancelChallengeTimers(partyID string) {
	e.cancelTimer(timerKey(partyID, "challenge-countdown"))
	e.cancelTimer(timerKey(partyID, "challenge-timer"))
}

func (e *Engine) teamOf(userID string) (*Party, *TeamChallenge, error) {
	p, ok := e.reg.PartyOf(userID)
	if !ok {
		return nil, nil, errNotInParty
	}
	ch, ok := e.reg.Challenge(p.ID)
	if !ok {
		return nil, nil, errNoChallenge
	}
	return p, ch, nil
}

func (e *Engine) handleTeamChat(c *hub.Client, payload json.RawMessage) error {
	var req chatRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	uid := c.Identity.UserID
	p, ch, err := e.teamOf(uid)
	if err != nil {
		return err
	}
	team, ok := ch.team(req.TeamID)
	if !ok {
		return errTeamNotFound
	}
	if !team.hasMember(uid) {
		return errNotTeamMember
	}
	text, err := chatText(req.Message)
	if err != nil {
		return err
	}

	msg := ChatMessage{
		ID:        e.reg.newID(),
		PartyID:   p.ID,
		TeamID:    team.ID,
		UserID:    uid,
		Username:  c.Identity.Username,
		Message:   text,
		Timestamp: e.sched.Now().UnixMilli(),
	}
	for _, id := range team.MemberIDs {
		if connID, ok := e.connOf(id); ok {
			e.emit(connID, EventTeamMessage, msg)
		}
	}
	return nil
}

func (e *Engine) handleTeamSwitch(c *hub.Client, payload json.RawMessage) error {
	var req switchRequest
	if err := decode(payload, &req); err != nil {
		return err
	}

	uid := c.Identity.UserID
	p, ch, err := e.teamOf(uid)
	if err != nil {
		return err
	}
	if ch.Status != ChallengeSetup {
		return errChallengeActive
	}
	if !ch.Settings.AllowTeamSwitching {
		return errSwitchDisabled
	}
	from, ok := ch.team(req.FromTeamID)
	if !ok {
		return errTeamNotFound
	}
	to, ok := ch.team(req.ToTeamID)
	if !ok {
		return errTeamNotFound
	}
	if !from.hasMember(uid) {
		return errNotTeamMember
	}
	if from.ID == to.ID {
		return nil
	}
	if len(to.MemberIDs) >= ch.Settings.MaxPlayersPerTeam {
		return errTeamFull
	}

	from.removeMember(uid)
	to.MemberIDs = append(to.MemberIDs, uid)

	teams := ch.Clone().Teams
	e.toParty(p.ID, EventMemberSwitched, MemberSwitched{
		PartyID:    p.ID,
		UserID:     uid,
		FromTeamID: from.ID,
		ToTeamID:   to.ID,
		Teams:      teams,
	})
	return nil
}

// dropFromTeams removes a departing member from the party's challenge.
func (e *Engine) dropFromTeams(partyID, userID string) {
	ch, ok := e.reg.Challenge(partyID)
	if !ok {
		return
	}
	for i := range ch.Teams {
		ch.Teams[i].removeMember(userID)
	}
}
