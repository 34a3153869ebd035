package models

import "time"

// ParticipantProgress is the completion of one participant for one judge.
// Extra counts answered shared questions and never enters Percent.
type ParticipantProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Extra     int     `json:"extra"`
	Percent   float64 `json:"percent"`
}

// CategoryProgress sums participant progress for one category
type CategoryProgress struct {
	Recorded              int     `json:"recorded"`
	Total                 int     `json:"total"`
	CompletedParticipants int     `json:"completed_participants"`
	TotalParticipants     int     `json:"total_participants"`
	Percent               float64 `json:"percent"`
}

// NarrativeProgress tracks shared questions across a gala, apart from Percent
type NarrativeProgress struct {
	Recorded int `json:"recorded"`
	Total    int `json:"total"`
}

// GalaProgress sums category progress for one judge and gala
type GalaProgress struct {
	Recorded  int               `json:"recorded"`
	Total     int               `json:"total"`
	Percent   float64           `json:"percent"`
	Narrative NarrativeProgress `json:"narrative"`
}

// Complete reports whether every required note of the gala is present
func (p GalaProgress) Complete() bool {
	return p.Total > 0 && p.Recorded == p.Total
}

// CategorySummary is one category entry of listAssignedGalas
type CategorySummary struct {
	Category
	Status   Status           `json:"status"`
	Progress CategoryProgress `json:"progress"`
}

// GalaSummary is one gala entry of listAssignedGalas
type GalaSummary struct {
	Gala
	Submitted   bool              `json:"submitted"`
	SubmittedAt string            `json:"submitted_at,omitempty"`
	Status      Status            `json:"status"`
	Progress    GalaProgress      `json:"progress"`
	Categories  []CategorySummary `json:"categories"`
}

// GalaList is the listAssignedGalas payload
type GalaList struct {
	Galas []GalaSummary `json:"galas"`
}

// ParticipantSummary is one participant row of getCategoryParticipants
type ParticipantSummary struct {
	Participant
	Progress ParticipantProgress `json:"progress"`
	Status   Status              `json:"status"`
}

// CategoryView is the getCategoryParticipants payload
type CategoryView struct {
	Gala         Gala                 `json:"gala"`
	Category     Category             `json:"category"`
	Locked       bool                 `json:"locked"`
	Submitted    bool                 `json:"submitted"`
	Status       Status               `json:"status"`
	Progress     CategoryProgress     `json:"progress"`
	Participants []ParticipantSummary `json:"participants"`
}

// QuestionView is one question of a participant view with the judge's note
type QuestionView struct {
	Question
	Order              int     `json:"ordre"`
	Response           *string `json:"reponse"`
	Value              *int    `json:"note"`
	Comment            *string `json:"commentaire"`
	Source             string  `json:"source,omitempty"`
	ScopeParticipantID int     `json:"scope_participant_id"`
	CountsForProgress  bool    `json:"counts_for_progress"`
}

// Note returns the judge's note for the question as a Note value
func (q QuestionView) Note() Note {
	return Note{
		QuestionID:          q.ID,
		ParticipantID:       q.ScopeParticipantID,
		Value:               q.Value,
		Comment:             q.Comment,
		TargetParticipantID: q.ScopeParticipantID,
	}
}

// ParticipantView is the getParticipantQuestions payload
type ParticipantView struct {
	Gala        Gala                `json:"gala"`
	Category    Category            `json:"category"`
	Participant Participant         `json:"participant"`
	Questions   []QuestionView      `json:"questions"`
	Progress    ParticipantProgress `json:"progress"`
	Status      Status              `json:"status"`
	Locked      bool                `json:"locked"`
	Submitted   bool                `json:"submitted"`
	Favorite    *FavoriteState      `json:"favorite,omitempty"`
}

// NoteWriteResult is the writeNote response
type NoteWriteResult struct {
	Status  string `json:"status"`
	Note    Note   `json:"note"`
	SavedAt string `json:"saved_at"`
}

// FavoriteResult is the setFavorite/clearFavorite response
type FavoriteResult struct {
	Status   string        `json:"status"`
	Favorite FavoriteState `json:"favorite"`
}

// StatusResult is a bare {"status": "ok"} acknowledgement
type StatusResult struct {
	Status string `json:"status"`
}

// ClientSettings are the save timings a judge client should use
type ClientSettings struct {
	DebounceMS  int64 `json:"debounce_ms"`
	BusyRetryMS int64 `json:"busy_retry_ms"`
}

// NewClientSettings converts durations to the wire form
func NewClientSettings(debounce, busyRetry time.Duration) ClientSettings {
	return ClientSettings{DebounceMS: debounce.Milliseconds(), BusyRetryMS: busyRetry.Milliseconds()}
}

// Debounce is the quiet period before an edited note is saved
func (s ClientSettings) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// BusyRetry is the delay before a save queued behind another is retried
func (s ClientSettings) BusyRetry() time.Duration {
	return time.Duration(s.BusyRetryMS) * time.Millisecond
}
