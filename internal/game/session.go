package game

import (
	"sort"
	"time"

	"quizroom/internal/domain"
)

// State is the round engine's position in the quiz lifecycle.
type State int

const (
	// StateRoom is the lobby: players joining, no round running.
	StateRoom State = iota
	// StateStarting covers the pre-game countdown after startGame.
	StateStarting
	// StateAnswering is the live answering window for one question.
	StateAnswering
	// StateResponses is the reveal screen after a round closes.
	StateResponses
	// StateLeaderboard is the interstitial scoreboard between rounds.
	StateLeaderboard
	// StateFinished is terminal: podium shown, no further rounds.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRoom:
		return "ROOM"
	case StateStarting:
		return "STARTING"
	case StateAnswering:
		return "ANSWERING"
	case StateResponses:
		return "RESPONSES"
	case StateLeaderboard:
		return "LEADERBOARD"
	case StateFinished:
		return "FINISH"
	default:
		return "UNKNOWN"
	}
}

// answer records a player's submission for the current round.
type answer struct {
	choice  int
	elapsed time.Duration
}

// Player is a joined participant. Points only ever increase.
type Player struct {
	ID       string
	Username string
	Points   int
	answer   *answer
}

// Session is the single authoritative quiz state. The zero value is the
// empty session (no room, no manager). All access goes through the
// Coordinator's lock.
type Session struct {
	Room      string
	Manager   string
	QuizName  string
	Questions []domain.Question
	Current   int
	State     State

	// players keeps insertion order so leaderboard ties stay stable.
	players []*Player
}

func (s *Session) active() bool {
	return s.Room != ""
}

func (s *Session) started() bool {
	return s.State != StateRoom
}

func (s *Session) playerByID(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) usernameTaken(name string) bool {
	for _, p := range s.players {
		if p.Username == name {
			return true
		}
	}
	return false
}

func (s *Session) addPlayer(id, username string) *Player {
	p := &Player{ID: id, Username: username}
	s.players = append(s.players, p)
	return p
}

// removePlayer deletes at most one entry and reports whether it did.
func (s *Session) removePlayer(id string) bool {
	for i, p := range s.players {
		if p.ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) clearAnswers() {
	for _, p := range s.players {
		p.answer = nil
	}
}

func (s *Session) answeredCount() int {
	n := 0
	for _, p := range s.players {
		if p.answer != nil {
			n++
		}
	}
	return n
}

// connIDs snapshots every connection in the room, manager included.
func (s *Session) connIDs() []string {
	ids := make([]string, 0, len(s.players)+1)
	if s.Manager != "" {
		ids = append(ids, s.Manager)
	}
	for _, p := range s.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// leaderboard returns up to limit entries sorted by points descending.
// The sort is stable: equal points keep join order. limit <= 0 means all.
func (s *Session) leaderboard(limit int) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		entries = append(entries, domain.LeaderboardEntry{
			Username: p.Username,
			Points:   p.Points,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// roundResult tallies the current question's responses into a snapshot.
// Percentages round to the nearest integer and are empty when nobody
// answered.
func (s *Session) roundResult() domain.RoundResult {
	q := s.Questions[s.Current]

	counts := make(map[int]int)
	total := 0
	for _, p := range s.players {
		if p.answer == nil {
			continue
		}
		counts[p.answer.choice]++
		total++
	}

	percentages := make(map[int]int)
	if total > 0 {
		for choice, n := range counts {
			percentages[choice] = int(float64(n)/float64(total)*100 + 0.5)
		}
	}

	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)

	return domain.RoundResult{
		Question:    q.Question,
		Answers:     answers,
		Image:       q.Image,
		Correct:     q.Correct,
		Responses:   counts,
		Percentages: percentages,
	}
}

// reset returns the session to the empty state.
func (s *Session) reset() {
	*s = Session{}
}
