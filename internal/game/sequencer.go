package game

import "time"

// Round tiers: 0 = half the roster rounded up, 1 = one full rotation,
// 2 = two full rotations (only offered with more than two players).
func roundTierValues(playerCount int) []int {
	if playerCount < 2 {
		return []int{3}
	}
	vals := []int{(playerCount + 1) / 2, playerCount}
	if playerCount > 2 {
		vals = append(vals, playerCount*2)
	}
	return vals
}

func maxRoundTier(playerCount int) int {
	return len(roundTierValues(playerCount)) - 1
}

// TotalRounds derives the round target from the live player count and
// the configured tier. Tiers the roster cannot support clamp to the
// highest available one.
func TotalRounds(playerCount, tier int) int {
	vals := roundTierValues(playerCount)
	if tier >= len(vals) {
		tier = len(vals) - 1
	}
	if tier < 0 {
		tier = 0
	}
	return vals[tier]
}

func (s *Session) clearRoundState() {
	s.Guesses = nil
	s.Votes = make(map[string]Vote)
	s.ReadyPlayers = nil
	s.OriginalPrompt = ""
	s.GeneratedImage = ""
	s.APIError = ""
	s.FailedPrompt = ""
	s.RoundPoints = make([]PointAward, 0, len(s.Players))
	for _, p := range s.Players {
		s.RoundPoints = append(s.RoundPoints, PointAward{PlayerID: p.ID, Name: p.Name})
	}
}

// startTurn seats the next prompter: the index advances modulo the
// roster, the round increments on wraparound, and exceeding the round
// target ends the game with the awards ceremony instead.
func (s *Session) startTurn(first bool, now time.Time) {
	if len(s.Players) == 0 {
		return
	}
	next := 0
	round := 1
	if !first {
		next = (s.CurrentPlayerIndex + 1) % len(s.Players)
		round = s.Round
		if next == 0 {
			round++
		}
	}
	if round > TotalRounds(len(s.Players), s.Settings.RoundTier) {
		s.Awards = ComputeAwards(s.Players, s.Stats)
		s.Prompter = nil
		s.clearRoundState()
		s.enterPhase(PhaseAwards, now)
		return
	}
	s.Round = round
	s.CurrentPlayerIndex = next
	prompter := *s.Players[next]
	prompter.TimedOut = false
	s.Prompter = &prompter
	s.clearRoundState()
	s.enterPhase(PhaseTurnTransition, now)
}
