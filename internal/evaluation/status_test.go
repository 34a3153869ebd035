package evaluation

import (
	"testing"

	"github.com/abrezinsky/galajudge/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name              string
		recorded, total   int
		locked, submitted bool
		want              models.Status
	}{
		{"nothing configured", 0, 0, false, false, models.StatusNonDisponible},
		{"nothing recorded", 0, 4, false, false, models.StatusEnAttente},
		{"partial", 2, 4, false, false, models.StatusEnCours},
		{"done", 4, 4, false, false, models.StatusTermine},
		{"submitted beats progress", 1, 4, false, true, models.StatusSoumis},
		{"submitted beats empty", 0, 0, false, true, models.StatusSoumis},
		{"locked beats everything", 4, 4, true, true, models.StatusVerrouille},
		{"locked while partial", 1, 4, true, false, models.StatusVerrouille},
		{"over-recorded is done", 5, 4, false, false, models.StatusTermine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.recorded, tt.total, tt.locked, tt.submitted); got != tt.want {
				t.Errorf("Classify(%d, %d, %v, %v) = %q, want %q",
					tt.recorded, tt.total, tt.locked, tt.submitted, got, tt.want)
			}
		})
	}
}

// TestStatusWrappers tests that each level classifies from its own counts
func TestStatusWrappers(t *testing.T) {
	if s := ParticipantStatus(models.ParticipantProgress{Completed: 1, Total: 2, Extra: 5}, false, false); s != models.StatusEnCours {
		t.Errorf("participant status = %q", s)
	}
	if s := CategoryStatus(models.CategoryProgress{Recorded: 0, Total: 6}, false, false); s != models.StatusEnAttente {
		t.Errorf("category status = %q", s)
	}
	if s := GalaStatus(models.GalaProgress{Recorded: 10, Total: 10}, false, false); s != models.StatusTermine {
		t.Errorf("gala status = %q", s)
	}
}
