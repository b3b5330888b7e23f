package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportRound appends the just-revealed round to a plain-text results
// file: the real prompt, every guess, who voted for what, and the
// running scores. Call it with a snapshot taken at REVEAL.
func ExportRound(s *Session, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder

	firstTurn := s.Round == 1 && s.CurrentPlayerIndex == 0
	if !fileExists || firstTurn {
		if fileExists {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("PicPrompt Results - Room %s\n", s.Code))
		sb.WriteString(fmt.Sprintf("Started: %s\n", time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
		sb.WriteString("Players:\n")
		for _, p := range s.Players {
			sb.WriteString(fmt.Sprintf("- %s\n", p.Name))
		}
		sb.WriteString("\n")
	}

	prompterName := "?"
	if s.Prompter != nil {
		prompterName = s.Prompter.Name
	}
	sb.WriteString(fmt.Sprintf("Round %d, %s's turn: \"%s\"\n", s.Round, prompterName, s.OriginalPrompt))
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	for _, g := range s.Guesses {
		sb.WriteString(fmt.Sprintf("- %s guessed: \"%s\"\n", g.PlayerName, g.Text))
	}

	if len(s.Votes) > 0 {
		sb.WriteString("\nVotes:\n")
		var correct []string
		for _, p := range s.Players {
			v, ok := s.Votes[p.ID]
			if !ok {
				continue
			}
			if v.Original {
				sb.WriteString(fmt.Sprintf("- %s voted for the real prompt\n", p.Name))
				correct = append(correct, p.Name)
				continue
			}
			authorName := v.GuesserID
			if author := s.player(v.GuesserID); author != nil {
				authorName = author.Name
			}
			sb.WriteString(fmt.Sprintf("- %s was fooled by %s\n", p.Name, authorName))
		}
		if len(correct) > 0 {
			sb.WriteString(fmt.Sprintf("\nFound the real prompt: %s\n", strings.Join(correct, ", ")))
		}
	}

	sb.WriteString("\nScores after this round:\n")
	ranked := append([]*Player(nil), s.Players...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	for _, p := range ranked {
		sb.WriteString(fmt.Sprintf("- %s: %d points\n", p.Name, p.Score))
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

// ExportAwards appends the awards ceremony and final standings. Call it
// with a snapshot taken at AWARDS.
func ExportAwards(s *Session, filename string) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString("Awards:\n")
	for _, a := range s.Awards {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", a.Title, a.PlayerName))
	}
	sb.WriteString(fmt.Sprintf("\nGame ended at %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
