package evaluation

import "github.com/abrezinsky/galajudge/internal/models"

// Classify derives the status of any granularity from its own
// (recorded, total) pair and the gala-wide lock and submission flags.
// First match wins: locked, submitted, nothing configured, nothing
// recorded, partially recorded, done.
func Classify(recorded, total int, locked, submitted bool) models.Status {
	switch {
	case locked:
		return models.StatusVerrouille
	case submitted:
		return models.StatusSoumis
	case total == 0:
		return models.StatusNonDisponible
	case recorded == 0:
		return models.StatusEnAttente
	case recorded < total:
		return models.StatusEnCours
	default:
		return models.StatusTermine
	}
}

// ParticipantStatus classifies participant progress
func ParticipantStatus(p models.ParticipantProgress, locked, submitted bool) models.Status {
	return Classify(p.Completed, p.Total, locked, submitted)
}

// CategoryStatus classifies category progress
func CategoryStatus(c models.CategoryProgress, locked, submitted bool) models.Status {
	return Classify(c.Recorded, c.Total, locked, submitted)
}

// GalaStatus classifies gala progress
func GalaStatus(g models.GalaProgress, locked, submitted bool) models.Status {
	return Classify(g.Recorded, g.Total, locked, submitted)
}
