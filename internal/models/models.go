package models

// Status is the discrete evaluation state of a participant, category or gala
type Status string

const (
	StatusNonDisponible Status = "non_disponible"
	StatusEnAttente     Status = "en_attente"
	StatusEnCours       Status = "en_cours"
	StatusTermine       Status = "termine"
	StatusSoumis        Status = "soumis"
	StatusVerrouille    Status = "verrouille"
)

// Rating bounds and comment limit for a Note
const (
	MinRating        = 1
	MaxRating        = 6
	MaxCommentLength = 1000
)

// Gala is a judged event instance for a given year
type Gala struct {
	ID       int    `json:"id"`
	Name     string `json:"nom"`
	Year     int    `json:"annee"`
	Locked   bool   `json:"locked"`
	LockedAt string `json:"locked_at,omitempty"`
}

// Category is a gala-scoped category (a gala_categorie record)
type Category struct {
	ID               int    `json:"id"`
	GalaID           int    `json:"gala_id"`
	Name             string `json:"nom"`
	Segment          string `json:"segment,omitempty"`
	QuestionCount    int    `json:"question_count"`
	ParticipantCount int    `json:"participant_count"`
}

// Participant is a company entered in one gala category
type Participant struct {
	ID           int    `json:"id"`
	CompanyID    int    `json:"compagnie_id"`
	CategoryID   int    `json:"gala_categorie_id"`
	Company      string `json:"compagnie"`
	City         string `json:"ville,omitempty"`
	Sector       string `json:"secteur,omitempty"`
	ContactName  string `json:"responsable_nom,omitempty"`
	ContactTitle string `json:"responsable_titre,omitempty"`
}

// Question is a scorable prompt owned by one category.
// Shared questions are surfaced to every category the participant's
// company is entered in, but only count toward their owning category.
type Question struct {
	ID         int     `json:"id"`
	CategoryID int     `json:"gala_categorie_id"`
	Text       string  `json:"texte"`
	Weight     float64 `json:"ponderation"`
	Shared     bool    `json:"shared"`
}

// Note is one judge's rating and comment for a participant/question pair.
// A note with neither value nor comment is indistinguishable from absence.
type Note struct {
	JudgeID             int     `json:"-"`
	GalaID              int     `json:"-"`
	ParticipantID       int     `json:"-"`
	QuestionID          int     `json:"-"`
	Value               *int    `json:"valeur"`
	Comment             *string `json:"commentaire"`
	TargetParticipantID int     `json:"target_participant_id"`
}

// Answered reports whether the note counts toward completion
func (n Note) Answered() bool {
	return n.Value != nil
}

// Empty reports whether the note carries no judge input at all
func (n Note) Empty() bool {
	return n.Value == nil && n.Comment == nil
}

// FavoriteState is a judge's coup-de-coeur pointer for one category.
// Allowed is only reported on participant views.
type FavoriteState struct {
	Selected      bool  `json:"selected"`
	ParticipantID *int  `json:"participant_id"`
	Allowed       *bool `json:"allowed,omitempty"`
}

// Submission records a judge's finalization of a gala
type Submission struct {
	JudgeID     int    `json:"juge_id"`
	GalaID      int    `json:"gala_id"`
	JudgeName   string `json:"juge_nom,omitempty"`
	Submitted   bool   `json:"submitted"`
	SubmittedAt string `json:"submitted_at,omitempty"`
}

// Judge is a user allowed to score the categories they are assigned to
type Judge struct {
	ID         int    `json:"id"`
	Name       string `json:"nom"`
	AccessCode string `json:"access_code,omitempty"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Scope identifies one judge's editing position. Every engine component
// takes it explicitly instead of reading ambient session state.
type Scope struct {
	JudgeID       int `json:"juge_id"`
	GalaID        int `json:"gala_id"`
	CategoryID    int `json:"gala_categorie_id"`
	ParticipantID int `json:"participant_id"`
}
