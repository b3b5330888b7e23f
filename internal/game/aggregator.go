package game

import "time"

// Submission collection for the three gathering phases. Each point
// accepts one entry per eligible player, treats replays of an already
// recorded entry as a no-op, and advances the phase inside the same
// serialized write that satisfies the quota.

// SubmitGuess records a non-prompter's guess at the original prompt.
// When every eligible player has guessed, the round moves on to voting.
func (s *Session) SubmitGuess(playerID, text string, now time.Time) error {
	if s.Phase != PhaseGuessing {
		return ErrInvalidPhase
	}
	p := s.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	if s.Prompter != nil && s.Prompter.ID == playerID {
		return ErrNotEligible
	}
	if s.hasGuess(playerID) {
		// duplicate client retry, already counted
		return nil
	}
	s.Guesses = append(s.Guesses, Guess{PlayerID: playerID, PlayerName: p.Name, Text: text})
	s.recordSubmission(playerID, len(text), now)
	if len(s.Guesses) >= s.eligibleCount() {
		s.enterPhase(PhaseVoteTransition, now)
	}
	return nil
}

// SubmitVote records a vote for either the original prompt or another
// player's guess. Self-votes are rejected here, not merely hidden in the
// UI. The final vote triggers scoring and the reveal together.
func (s *Session) SubmitVote(voterID string, v Vote, now time.Time) error {
	if s.Phase != PhaseVoting {
		return ErrInvalidPhase
	}
	if s.player(voterID) == nil {
		return ErrNotInRoom
	}
	if s.Prompter != nil && s.Prompter.ID == voterID {
		return ErrNotEligible
	}
	if !v.Original {
		if v.GuesserID == voterID {
			return ErrSelfVote
		}
		if !s.hasGuess(v.GuesserID) {
			return ErrUnknownOption
		}
	}
	if _, voted := s.Votes[voterID]; voted {
		return nil
	}
	if s.Votes == nil {
		s.Votes = make(map[string]Vote)
	}
	s.Votes[voterID] = v
	if len(s.Votes) >= s.eligibleCount() {
		s.applyVotes()
		s.enterPhase(PhaseReveal, now)
	}
	return nil
}

// ReadyUp acknowledges the round result. Once the whole roster is ready
// the next turn starts without waiting for the host's manual trigger.
func (s *Session) ReadyUp(playerID string, now time.Time) error {
	if s.Phase != PhaseReveal {
		return ErrInvalidPhase
	}
	if s.player(playerID) == nil {
		return ErrNotInRoom
	}
	if s.isReady(playerID) {
		return nil
	}
	s.ReadyPlayers = append(s.ReadyPlayers, playerID)
	if len(s.ReadyPlayers) >= len(s.Players) {
		s.startTurn(false, now)
	}
	return nil
}

// checkQuotas re-evaluates phase quotas after a roster shrink, so a
// leaving player cannot strand a phase waiting on their submission.
func (s *Session) checkQuotas(now time.Time) {
	switch s.Phase {
	case PhaseGuessing:
		if len(s.Guesses) >= s.eligibleCount() {
			s.enterPhase(PhaseVoteTransition, now)
		}
	case PhaseVoting:
		if len(s.Votes) >= s.eligibleCount() {
			s.applyVotes()
			s.enterPhase(PhaseReveal, now)
		}
	case PhaseReveal:
		if len(s.ReadyPlayers) >= len(s.Players) {
			s.startTurn(false, now)
		}
	}
}
