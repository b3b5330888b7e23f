package game

import (
	"testing"
	"time"
)

// toVoting drives a four-player session into the voting phase with p0 as
// prompter and guesses recorded for p1, p2 and p3.
func toVoting(t *testing.T, s *Session, now time.Time) {
	t.Helper()
	toGuessing(t, s, now)
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := s.SubmitGuess(id, "guess by "+id, now); err != nil {
			t.Fatalf("guess %s: %v", id, err)
		}
	}
	s.AdvanceOnTimeout(now) // vote transition -> voting
	if s.Phase != PhaseVoting {
		t.Fatalf("expected %s, got %s", PhaseVoting, s.Phase)
	}
}

func pointsFor(t *testing.T, s *Session, id string) PointAward {
	t.Helper()
	for _, pa := range s.RoundPoints {
		if pa.PlayerID == id {
			return pa
		}
	}
	t.Fatalf("no point row for %s", id)
	return PointAward{}
}

func TestScoringRound(t *testing.T) {
	now := time.Now()
	s := newSession("Alice", "Bob", "Carol", "Dave")
	toVoting(t, s, now)

	// p1 finds the real prompt, p2 and p3 fall for p1's guess
	if err := s.SubmitVote("p1", Vote{Original: true}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote("p2", Vote{GuesserID: "p1"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote("p3", Vote{GuesserID: "p1"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if s.Phase != PhaseReveal {
		t.Fatalf("expected %s, got %s", PhaseReveal, s.Phase)
	}

	p0 := pointsFor(t, s, "p0")
	if p0.Points != pointsPrompterFound || p0.Reason != reasonPromptFound {
		t.Fatalf("prompter row: %+v", p0)
	}
	p1 := pointsFor(t, s, "p1")
	if p1.Points != pointsCorrectVoter+2*pointsDeception {
		t.Fatalf("p1 points: %+v", p1)
	}
	// the reason reflects the first event, later ones only add points
	if p1.Reason != reasonFoundPrompt {
		t.Fatalf("p1 reason: %q", p1.Reason)
	}
	for _, id := range []string{"p2", "p3"} {
		if pa := pointsFor(t, s, id); pa.Points != 0 || pa.Reason != "" {
			t.Fatalf("%s should have an empty row, got %+v", id, pa)
		}
	}

	// round deltas already folded into the running scores
	if s.Players[0].Score != 75 {
		t.Fatalf("p0 score: %d", s.Players[0].Score)
	}
	if s.Players[1].Score != 400 {
		t.Fatalf("p1 score: %d", s.Players[1].Score)
	}

	// and the stats for the awards ceremony
	if s.Stats["p1"].CorrectGuesses != 1 || s.Stats["p1"].DeceptionVotes != 2 {
		t.Fatalf("p1 stats: %+v", s.Stats["p1"])
	}
}

func TestScoringNobodyFindsPrompt(t *testing.T) {
	now := time.Now()
	s := newSession("Alice", "Bob", "Carol", "Dave")
	toVoting(t, s, now)

	if err := s.SubmitVote("p1", Vote{GuesserID: "p2"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote("p2", Vote{GuesserID: "p3"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote("p3", Vote{GuesserID: "p2"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if pa := pointsFor(t, s, "p0"); pa.Points != 0 {
		t.Fatalf("prompter found by nobody should score nothing, got %+v", pa)
	}
	if pa := pointsFor(t, s, "p2"); pa.Points != 2*pointsDeception || pa.Reason != reasonFooled {
		t.Fatalf("p2 row: %+v", pa)
	}
	if pa := pointsFor(t, s, "p3"); pa.Points != pointsDeception {
		t.Fatalf("p3 row: %+v", pa)
	}
}

func TestScoringSurvivesMidRoundLeave(t *testing.T) {
	now := time.Now()
	s := newSession("Alice", "Bob", "Carol", "Dave")
	toVoting(t, s, now)

	if err := s.SubmitVote("p1", Vote{Original: true}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.SubmitVote("p2", Vote{GuesserID: "p1"}, now); err != nil {
		t.Fatalf("vote: %v", err)
	}

	// p3 leaves before voting; the quota recheck completes the round
	s.Players = s.Players[:3]
	s.checkQuotas(now)
	if s.Phase != PhaseReveal {
		t.Fatalf("expected %s, got %s", PhaseReveal, s.Phase)
	}
	if s.Players[1].Score != pointsCorrectVoter+pointsDeception {
		t.Fatalf("p1 score: %d", s.Players[1].Score)
	}
}
