package game

import "time"

// Nominal per-phase countdown durations. Phases absent from the table
// carry no timer; PROMPTING is special-cased because it inherits whatever
// remains of the turn timer started at TURN_TRANSITION.
var phaseTimers = map[Phase]time.Duration{
	PhaseCountdown:      5 * time.Second,
	PhaseTurnTransition: 60 * time.Second,
	PhaseShowingImage:   5 * time.Second,
	PhaseGuessing:       45 * time.Second,
	PhaseVoteTransition: 40 * time.Second,
}

// Timer speed tiers selected in the lobby: Fast, Normal, Slow.
var timerSpeedScale = []float64{0.5, 1.0, 1.5}

func (st Settings) timerScale() float64 {
	if st.TimerSpeed < 0 || st.TimerSpeed >= len(timerSpeedScale) {
		return 1.0
	}
	return timerSpeedScale[st.TimerSpeed]
}

// HasTimer reports whether the phase carries a replicated deadline.
func (p Phase) HasTimer() bool {
	if p == PhasePrompting {
		return true
	}
	_, ok := phaseTimers[p]
	return ok
}

// enterPhase moves the document to the given phase and applies its timer
// policy: a fresh scaled deadline for timed phases, inheritance of the
// running turn timer for PROMPTING, nil for everything else.
func (s *Session) enterPhase(p Phase, now time.Time) {
	s.Phase = p
	if p != PhasePrompting {
		s.phaseEnteredAt = now
	}
	if d, ok := phaseTimers[p]; ok {
		t := now.Add(time.Duration(float64(d) * s.Settings.timerScale()))
		s.TimerDeadline = &t
		return
	}
	if p == PhasePrompting {
		// keep the deadline set at TURN_TRANSITION entry
		return
	}
	s.TimerDeadline = nil
}

// EnactTimeout applies the timeout edge if the replicated deadline has
// passed and a host exists to act on it. A host-less document does not
// advance: with nobody holding timeout authority, progress stalls until
// failover seats a new host.
func (s *Session) EnactTimeout(now time.Time) bool {
	if s.TimerDeadline == nil || now.Before(*s.TimerDeadline) {
		return false
	}
	if s.Host() == nil {
		return false
	}
	s.AdvanceOnTimeout(now)
	return true
}

// AdvanceOnTimeout applies the timeout edge for the current phase. It is
// pure over (snapshot, now) and safe to evaluate redundantly, but must be
// executed only under the host's authority; the timekeeper checks that
// before calling it.
func (s *Session) AdvanceOnTimeout(now time.Time) {
	switch s.Phase {
	case PhaseCountdown:
		s.startTurn(true, now)
	case PhaseTurnTransition:
		s.enterPhase(PhasePrompting, now)
	case PhasePrompting:
		if s.Prompter != nil {
			s.Prompter.TimedOut = true
		}
		s.enterPhase(PhaseTurnTransition, now)
	case PhaseShowingImage:
		s.enterPhase(PhaseGuessing, now)
	case PhaseGuessing:
		s.enterPhase(PhaseVoteTransition, now)
	case PhaseVoteTransition:
		s.enterPhase(PhaseVoting, now)
	}
}

// StartGame moves the lobby into the starting countdown. Host only, and
// only with at least two players seated.
func (s *Session) StartGame(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseSetup {
		return ErrInvalidPhase
	}
	if len(s.Players) < 2 {
		return ErrTooFewPlayers
	}
	s.enterPhase(PhaseCountdown, now)
	return nil
}

// UpdateSettings replaces the lobby configuration. Host only, pre-game
// only. Round tiers beyond what the roster supports clamp to the highest
// available tier.
func (s *Session) UpdateSettings(actorID string, st Settings, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseSetup {
		return ErrInvalidPhase
	}
	if max := maxRoundTier(len(s.Players)); st.RoundTier > max {
		st.RoundTier = max
	}
	if st.RoundTier < 0 {
		st.RoundTier = 0
	}
	if st.TimerSpeed < 0 || st.TimerSpeed >= len(timerSpeedScale) {
		st.TimerSpeed = 1
	}
	s.Settings = st
	return nil
}

// SubmitPrompt records the prompter's generation prompt and hands off to
// the image collaborator. Accepted from TURN_TRANSITION as well, since
// the turn timer already runs there.
func (s *Session) SubmitPrompt(playerID, prompt string, now time.Time) error {
	if s.Phase != PhaseTurnTransition && s.Phase != PhasePrompting {
		return ErrInvalidPhase
	}
	if s.Prompter == nil || s.Prompter.ID != playerID {
		return ErrNotPrompter
	}
	if s.Prompter.TimedOut {
		return ErrInvalidPhase
	}
	s.OriginalPrompt = prompt
	s.recordSubmission(playerID, len(prompt), now)
	s.enterPhase(PhaseGenerating, now)
	return nil
}

// FinishGeneration stores the produced image and starts the reveal
// countdown.
func (s *Session) FinishGeneration(image string, now time.Time) error {
	if s.Phase != PhaseGenerating {
		return ErrInvalidPhase
	}
	s.GeneratedImage = image
	s.enterPhase(PhaseShowingImage, now)
	return nil
}

// FailGeneration surfaces a generation failure as an explicit error
// phase carrying the failed prompt, for the host to retry or skip.
func (s *Session) FailGeneration(msg string, now time.Time) error {
	if s.Phase != PhaseGenerating {
		return ErrInvalidPhase
	}
	s.APIError = msg
	s.FailedPrompt = s.OriginalPrompt
	s.OriginalPrompt = ""
	s.enterPhase(PhaseAPIError, now)
	return nil
}

// RetryPrompt re-enters PROMPTING with the same prompter after a
// generation failure. The turn timer restarts in full.
func (s *Session) RetryPrompt(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseAPIError {
		return ErrInvalidPhase
	}
	s.APIError = ""
	s.FailedPrompt = ""
	if s.Prompter != nil {
		s.Prompter.TimedOut = false
	}
	t := now.Add(time.Duration(float64(phaseTimers[PhaseTurnTransition]) * s.Settings.timerScale()))
	s.TimerDeadline = &t
	s.Phase = PhasePrompting
	s.phaseEnteredAt = now
	return nil
}

// SkipTurn advances past a stuck turn: a timed-out prompter or a failed
// generation the host chooses not to retry.
func (s *Session) SkipTurn(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	switch s.Phase {
	case PhaseAPIError:
	case PhaseTurnTransition, PhasePrompting:
		if s.Prompter == nil || !s.Prompter.TimedOut {
			return ErrInvalidPhase
		}
	default:
		return ErrInvalidPhase
	}
	s.startTurn(false, now)
	return nil
}

// NextRound is the host's explicit trigger out of the reveal screen; the
// ready-ack quota normally fires the same transition on its own.
func (s *Session) NextRound(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseReveal {
		return ErrInvalidPhase
	}
	s.startTurn(false, now)
	return nil
}

// FinishAwards moves from the awards ceremony to the final scoreboard.
func (s *Session) FinishAwards(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseAwards {
		return ErrInvalidPhase
	}
	s.enterPhase(PhaseScore, now)
	return nil
}

// PlayAgain resets scores, stats and the round counter and returns the
// room to the lobby with the roster intact.
func (s *Session) PlayAgain(actorID string, now time.Time) error {
	if !s.isHost(actorID) {
		return ErrNotHost
	}
	if s.Phase != PhaseScore {
		return ErrInvalidPhase
	}
	for _, p := range s.Players {
		p.Score = 0
	}
	s.Round = 0
	s.CurrentPlayerIndex = -1
	s.Prompter = nil
	s.Stats = make(map[string]*PlayerStats)
	s.Awards = nil
	s.clearRoundState()
	s.enterPhase(PhaseSetup, now)
	return nil
}
