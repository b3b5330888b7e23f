package game

const (
	AwardMostDeceptive   = "Most Deceptive"
	AwardMasterDetective = "Master Detective"
	AwardWordWizard      = "Word Wizard"
	AwardQuickDraw       = "Quick Draw"
)

// ComputeAwards derives the end-of-game superlatives from the
// session-lifetime stats. Ties break toward the lowest roster index, and
// each player receives at most one award: when the same player tops two
// categories, only the first-computed award survives.
func ComputeAwards(players []*Player, stats map[string]*PlayerStats) []Award {
	stat := func(id string) *PlayerStats {
		if ps, ok := stats[id]; ok {
			return ps
		}
		return &PlayerStats{}
	}

	top := func(value func(*PlayerStats) (float64, bool), lower bool) *Player {
		var best *Player
		var bestVal float64
		for _, p := range players {
			v, ok := value(stat(p.ID))
			if !ok {
				continue
			}
			if best == nil || (lower && v < bestVal) || (!lower && v > bestVal) {
				best = p
				bestVal = v
			}
		}
		return best
	}

	var list []Award
	addAward := func(title string, p *Player) {
		if p == nil {
			return
		}
		for _, a := range list {
			if a.PlayerID == p.ID {
				return
			}
		}
		list = append(list, Award{Title: title, PlayerID: p.ID, PlayerName: p.Name, Avatar: p.Avatar})
	}

	addAward(AwardMostDeceptive, top(func(ps *PlayerStats) (float64, bool) {
		return float64(ps.DeceptionVotes), ps.DeceptionVotes > 0
	}, false))

	addAward(AwardMasterDetective, top(func(ps *PlayerStats) (float64, bool) {
		return float64(ps.CorrectGuesses), ps.CorrectGuesses > 0
	}, false))

	addAward(AwardWordWizard, top(func(ps *PlayerStats) (float64, bool) {
		longest := 0
		for _, n := range ps.PromptLengths {
			if n > longest {
				longest = n
			}
		}
		return float64(longest), longest > 0
	}, false))

	// players with no timed submissions are excluded rather than ranked
	addAward(AwardQuickDraw, top(func(ps *PlayerStats) (float64, bool) {
		if len(ps.LatenciesMS) == 0 {
			return 0, false
		}
		var sum int64
		for _, ms := range ps.LatenciesMS {
			sum += ms
		}
		return float64(sum) / float64(len(ps.LatenciesMS)), true
	}, true))

	return list
}
