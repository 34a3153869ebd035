package evaluation

import (
	"math"

	"github.com/abrezinsky/galajudge/internal/models"
)

// QuestionState is the aggregator's view of one question for one participant
type QuestionState struct {
	QuestionID        int
	Shared            bool
	CountsForProgress bool
	Answered          bool
}

// QuestionStates extracts aggregator input from a participant view
func QuestionStates(questions []models.QuestionView) []QuestionState {
	states := make([]QuestionState, 0, len(questions))
	for _, q := range questions {
		states = append(states, QuestionState{
			QuestionID:        q.ID,
			Shared:            q.Shared,
			CountsForProgress: q.CountsForProgress,
			Answered:          q.Value != nil,
		})
	}
	return states
}

// Percent is the one rounding policy for every progress level: one decimal,
// ties away from zero, 0 when there is nothing to complete.
func Percent(recorded, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(recorded)/float64(total)*1000) / 10
}

// ParticipantProgress counts completion for one participant. Shared questions
// never enter Total or Percent; answered ones are reported as Extra.
func ParticipantProgress(questions []QuestionState) models.ParticipantProgress {
	var p models.ParticipantProgress
	for _, q := range questions {
		if q.CountsForProgress {
			p.Total++
			if q.Answered {
				p.Completed++
			}
			continue
		}
		if q.Answered {
			p.Extra++
		}
	}
	p.Percent = Percent(p.Completed, p.Total)
	return p
}

// CountProgress builds participant progress from pre-aggregated counts,
// capping answered at total.
func CountProgress(answered, total int) models.ParticipantProgress {
	if answered > total {
		answered = total
	}
	if answered < 0 {
		answered = 0
	}
	return models.ParticipantProgress{
		Completed: answered,
		Total:     total,
		Percent:   Percent(answered, total),
	}
}

// ParticipantCompleted reports whether a participant counts as completed at
// category level.
func ParticipantCompleted(p models.ParticipantProgress) bool {
	return p.Total > 0 && p.Completed == p.Total
}

// CategoryProgress sums participant results without going back to the store
func CategoryProgress(participants []models.ParticipantProgress) models.CategoryProgress {
	c := models.CategoryProgress{TotalParticipants: len(participants)}
	for _, p := range participants {
		completed := p.Completed
		if completed > p.Total {
			completed = p.Total
		}
		c.Recorded += completed
		c.Total += p.Total
		if ParticipantCompleted(p) {
			c.CompletedParticipants++
		}
	}
	c.Percent = Percent(c.Recorded, c.Total)
	return c
}

// GalaProgress sums category results. Narrative completion rides along
// untouched and never affects Percent.
func GalaProgress(categories []models.CategoryProgress, narrative models.NarrativeProgress) models.GalaProgress {
	g := models.GalaProgress{Narrative: narrative}
	for _, c := range categories {
		g.Recorded += c.Recorded
		g.Total += c.Total
	}
	g.Percent = Percent(g.Recorded, g.Total)
	return g
}
