package game

const (
	pointsCorrectVoter  = 200
	pointsPrompterFound = 75
	pointsDeception     = 100

	reasonFoundPrompt = "Found the real prompt!"
	reasonPromptFound = "Your prompt was found!"
	reasonFooled      = "Fooled a player!"
)

// applyVotes converts the completed vote into round point deltas and
// folds them into the running scores. It runs inside the same write that
// enters REVEAL, so scores and phase change land atomically.
func (s *Session) applyVotes() {
	byID := make(map[string]*PointAward, len(s.RoundPoints))
	if len(s.RoundPoints) != len(s.Players) {
		s.RoundPoints = make([]PointAward, 0, len(s.Players))
		for _, p := range s.Players {
			s.RoundPoints = append(s.RoundPoints, PointAward{PlayerID: p.ID, Name: p.Name})
		}
	}
	for i := range s.RoundPoints {
		byID[s.RoundPoints[i].PlayerID] = &s.RoundPoints[i]
	}
	award := func(playerID string, pts int, reason string) {
		pa := byID[playerID]
		if pa == nil {
			return
		}
		pa.Points += pts
		if pa.Reason == "" {
			pa.Reason = reason
		}
	}

	// iterate voters in roster order so reruns are deterministic
	for _, p := range s.Players {
		v, ok := s.Votes[p.ID]
		if !ok {
			continue
		}
		if v.Original {
			award(p.ID, pointsCorrectVoter, reasonFoundPrompt)
			if s.Prompter != nil {
				award(s.Prompter.ID, pointsPrompterFound, reasonPromptFound)
			}
			s.stats(p.ID).CorrectGuesses++
		} else {
			award(v.GuesserID, pointsDeception, reasonFooled)
			s.stats(v.GuesserID).DeceptionVotes++
		}
	}

	for _, p := range s.Players {
		if pa := byID[p.ID]; pa != nil {
			p.Score += pa.Points
		}
	}
}
