package domain

import (
	"strings"
	"time"
)

// Question is one song entry in a quiz. Its index in the quiz's question
// list is the song number shown to participants.
type Question struct {
	Artist             string `json:"artist"`
	Song               string `json:"song"`
	SongLink           string `json:"songLink"`
	Extra              string `json:"extra,omitempty"`
	CorrectExtraAnswer string `json:"correctExtraAnswer,omitempty"`
	Hint               string `json:"hint,omitempty"`
}

// HasScoredExtra reports whether the bonus sub-question counts toward the
// score. Both the prompt and its correct answer must be authored; an extra
// without a key (or the reverse) is display-only.
func (q Question) HasScoredExtra() bool {
	return strings.TrimSpace(q.Extra) != "" && strings.TrimSpace(q.CorrectExtraAnswer) != ""
}

// Rating is one user's rating of a quiz, 0-5 in half-point steps.
// A quiz holds at most one rating per user; re-rating replaces in place.
type Rating struct {
	UserID  string    `json:"userId"`
	Value   float64   `json:"value"`
	RatedAt time.Time `json:"ratedAt"`
}

// Quiz is an authored music quiz. CalculatedMaxScore is derived from the
// question list and is never hand-edited; every write path recomputes it.
type Quiz struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Rules              string     `json:"rules"`
	Questions          []Question `json:"questions"`
	Amount             int        `json:"amount"`
	MaxScorePerSong    float64    `json:"maxScorePerSong"`
	CalculatedMaxScore float64    `json:"calculatedMaxScore"`
	IsReady            bool       `json:"isReady"`
	CreatedBy          string     `json:"createdBy"`
	Ratings            []Rating   `json:"ratings"`
	AverageRating      float64    `json:"averageRating"`
	RatingCount        int        `json:"ratingCount"`
}

// GuessedSong is a participant's free-text guess for one song. Any field
// may be blank.
type GuessedSong struct {
	Artist      string `json:"artist"`
	SongName    string `json:"songName"`
	ExtraAnswer string `json:"extraAnswer"`
}

// Answer is one participant's submission to one quiz. Guesses are
// index-aligned with the quiz's questions. CalculatedMaxScore is a snapshot
// of the quiz's value taken at save time.
type Answer struct {
	ID                     string        `json:"id"`
	QuizID                 string        `json:"quizId"`
	AnswerCreatorID        string        `json:"answerCreatorId"`
	AnswerCreatorName      string        `json:"answerCreatorName"`
	TeamSize               int           `json:"teamSize"`
	TeamMembers            []string      `json:"teamMembers"`
	Answers                []GuessedSong `json:"answers"`
	SelfAssessedSongScores []float64     `json:"selfAssessedSongScores"`
	Score                  float64       `json:"score"`
	CalculatedMaxScore     float64       `json:"calculatedMaxScore"`
	IsChecked              bool          `json:"isChecked"`
	IsCompleted            bool          `json:"isCompleted"`
	AutoSavedAt            time.Time     `json:"autoSavedAt"`
	EditedAt               time.Time     `json:"editedAt"`
	SubmittedAt            time.Time     `json:"submittedAt"`
}

// Identity is what the external identity provider supplies for the active
// caller. A zero UID blocks every mutating operation.
type Identity struct {
	UID         string
	DisplayName string
}
