package domain

// Question models a single multiple-choice round. The UI renders four
// choices, but the engine accepts any number.
type Question struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Image    string   `json:"image,omitempty"`
	Correct  int      `json:"correct"`
	Time     int      `json:"time"` // answering window in seconds
}

// QuestionBank is the durable artifact: the named quiz plus its questions.
// It is the exact shape persisted by the question store.
type QuestionBank struct {
	QuizName  string     `json:"quizName"`
	Questions []Question `json:"questions"`
}

// PlayerInfo is the wire-facing view of a player.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// LeaderboardEntry is one scoreboard row, ordered by points descending.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// RoundResult summarizes a finished answering round for the reveal screen.
type RoundResult struct {
	Question    string      `json:"question"`
	Answers     []string    `json:"answers"`
	Image       string      `json:"image,omitempty"`
	Correct     int         `json:"correct"`
	Responses   map[int]int `json:"responses"`
	Percentages map[int]int `json:"percentages"`
}

// DefaultBank is the built-in fallback used when the question store is
// missing or corrupt, so the service never fails to start over bad data.
func DefaultBank() QuestionBank {
	return QuestionBank{
		QuizName: "General Knowledge",
		Questions: []Question{
			{
				Question: "What is the capital of France?",
				Answers:  []string{"Berlin", "Paris", "Madrid", "Rome"},
				Correct:  1,
				Time:     10,
			},
			{
				Question: "Which planet is known as the Red Planet?",
				Answers:  []string{"Venus", "Jupiter", "Mars", "Saturn"},
				Correct:  2,
				Time:     10,
			},
			{
				Question: "How many continents are there?",
				Answers:  []string{"Five", "Six", "Seven", "Eight"},
				Correct:  2,
				Time:     10,
			},
		},
	}
}
