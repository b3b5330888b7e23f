package game

import (
	"strings"
	"time"
)

type Phase string

const (
	PhaseSetup          Phase = "SETUP"
	PhaseCountdown      Phase = "GAME_START_COUNTDOWN"
	PhaseTurnTransition Phase = "TURN_TRANSITION"
	PhasePrompting      Phase = "PROMPTING"
	PhaseGenerating     Phase = "GENERATING_IMAGE"
	PhaseAPIError       Phase = "API_ERROR"
	PhaseShowingImage   Phase = "SHOWING_IMAGE"
	PhaseGuessing       Phase = "GUESSING"
	PhaseVoteTransition Phase = "VOTE_TRANSITION"
	PhaseVoting         Phase = "VOTING"
	PhaseReveal         Phase = "REVEAL"
	PhaseAwards         Phase = "AWARDS"
	PhaseScore          Phase = "SCORE"
)

type Avatar struct {
	Color     string `json:"color"`
	IconIndex int    `json:"iconIndex"`
}

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Avatar Avatar `json:"avatar"`
	IsHost bool   `json:"isHost"`
	// TimedOut is only ever set on the denormalized Prompter snapshot,
	// never on a roster entry.
	TimedOut bool `json:"timedOut,omitempty"`
}

type Settings struct {
	RoundTier  int `json:"roundTier"`
	TimerSpeed int `json:"timerSpeed"`
}

type Guess struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
}

// Vote is one voter's pick: either the original prompt or a specific
// player's guess.
type Vote struct {
	Original  bool   `json:"original"`
	GuesserID string `json:"guesserId,omitempty"`
}

// PointAward is a per-player point delta for the round just finished,
// retained for the reveal screen.
type PointAward struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Reason   string `json:"reason,omitempty"`
}

// PlayerStats are session-lifetime counters feeding the awards ceremony.
type PlayerStats struct {
	DeceptionVotes int     `json:"deceptionVotes"`
	CorrectGuesses int     `json:"correctGuesses"`
	PromptLengths  []int   `json:"promptLengths"`
	LatenciesMS    []int64 `json:"latenciesMs"`
}

type Award struct {
	Title      string `json:"title"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Avatar     Avatar `json:"avatar"`
}

// Session is the shared game document. Every connected client renders
// purely from a snapshot of it; all mutation goes through Room.Update,
// which serializes writers and bumps Version.
type Session struct {
	Code               string                  `json:"code"`
	Phase              Phase                   `json:"phase"`
	Round              int                     `json:"round"`
	CurrentPlayerIndex int                     `json:"currentPlayerIndex"`
	Players            []*Player               `json:"players"`
	Prompter           *Player                 `json:"prompter,omitempty"`
	OriginalPrompt     string                  `json:"originalPrompt,omitempty"`
	GeneratedImage     string                  `json:"generatedImage,omitempty"`
	Guesses            []Guess                 `json:"guesses"`
	Votes              map[string]Vote         `json:"votes"`
	RoundPoints        []PointAward            `json:"roundPoints"`
	ReadyPlayers       []string                `json:"readyPlayers"`
	Stats              map[string]*PlayerStats `json:"stats"`
	Settings           Settings                `json:"settings"`
	TimerDeadline      *time.Time              `json:"timerDeadline,omitempty"`
	APIError           string                  `json:"apiError,omitempty"`
	FailedPrompt       string                  `json:"failedPrompt,omitempty"`
	Awards             []Award                 `json:"awards,omitempty"`
	Version            uint64                  `json:"version"`

	// phaseEnteredAt anchors submission latency measurement. It is not
	// replicated; clients derive countdowns from TimerDeadline.
	phaseEnteredAt time.Time
}

func (s *Session) player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) nameTaken(name string) bool {
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Host returns the current host, or nil while host failover is pending.
func (s *Session) Host() *Player {
	for _, p := range s.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (s *Session) isHost(id string) bool {
	h := s.Host()
	return h != nil && h.ID == id
}

// eligibleCount is the submission quota for the guessing and voting
// phases: every roster member except the current prompter.
func (s *Session) eligibleCount() int {
	n := len(s.Players)
	if s.Prompter != nil && s.player(s.Prompter.ID) != nil {
		n--
	}
	return n
}

func (s *Session) hasGuess(playerID string) bool {
	for _, g := range s.Guesses {
		if g.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (s *Session) isReady(playerID string) bool {
	for _, id := range s.ReadyPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

func (s *Session) stats(playerID string) *PlayerStats {
	if s.Stats == nil {
		s.Stats = make(map[string]*PlayerStats)
	}
	ps := s.Stats[playerID]
	if ps == nil {
		ps = &PlayerStats{}
		s.Stats[playerID] = ps
	}
	return ps
}

// recordSubmission notes the length and latency of a timed submission
// (a prompt or a guess) for the awards ceremony.
func (s *Session) recordSubmission(playerID string, length int, now time.Time) {
	ps := s.stats(playerID)
	ps.PromptLengths = append(ps.PromptLengths, length)
	lat := now.Sub(s.phaseEnteredAt)
	if lat < 0 {
		lat = 0
	}
	ps.LatenciesMS = append(ps.LatenciesMS, lat.Milliseconds())
}

// clone deep-copies the document so snapshots handed to subscribers are
// immune to later writes.
func (s *Session) clone() *Session {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		c.Players[i] = &cp
	}
	if s.Prompter != nil {
		pr := *s.Prompter
		c.Prompter = &pr
	}
	c.Guesses = append([]Guess(nil), s.Guesses...)
	c.Votes = make(map[string]Vote, len(s.Votes))
	for k, v := range s.Votes {
		c.Votes[k] = v
	}
	c.RoundPoints = append([]PointAward(nil), s.RoundPoints...)
	c.ReadyPlayers = append([]string(nil), s.ReadyPlayers...)
	c.Stats = make(map[string]*PlayerStats, len(s.Stats))
	for k, v := range s.Stats {
		cs := *v
		cs.PromptLengths = append([]int(nil), v.PromptLengths...)
		cs.LatenciesMS = append([]int64(nil), v.LatenciesMS...)
		c.Stats[k] = &cs
	}
	c.Awards = append([]Award(nil), s.Awards...)
	if s.TimerDeadline != nil {
		t := *s.TimerDeadline
		c.TimerDeadline = &t
	}
	return &c
}
