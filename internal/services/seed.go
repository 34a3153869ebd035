package services

import (
	"context"
	"time"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/errors"
	"github.com/abrezinsky/galajudge/internal/models"
)

// SeedResult reports what SeedDemo created
type SeedResult struct {
	GalaID       int            `json:"gala_id"`
	Categories   int            `json:"categories"`
	Participants int            `json:"participants"`
	Judges       []models.Judge `json:"judges"`
}

type seedCategory struct {
	name      string
	segment   string
	questions []string
	shared    bool
}

var demoCategories = []seedCategory{
	{name: "Innovation", segment: "PME", questions: []string{
		"Originalité de la solution",
		"Impact sur le marché",
		"Potentiel de croissance",
	}},
	{name: "Développement durable", segment: "Grande entreprise", questions: []string{
		"Réduction de l'empreinte environnementale",
		"Engagement envers la communauté",
	}},
	{name: "Narratif", shared: true, questions: []string{
		"Racontez l'histoire de votre entreprise",
	}},
}

var demoCompanies = []models.Participant{
	{Company: "Boulangerie Dupuis", City: "Québec", Sector: "Alimentation", ContactName: "Julie Dupuis", ContactTitle: "Présidente"},
	{Company: "Atelier Morin", City: "Lévis", Sector: "Manufacturier", ContactName: "Marc Morin", ContactTitle: "Directeur général"},
	{Company: "Solutions Côté", City: "Sherbrooke", Sector: "Technologies", ContactName: "Anne Côté", ContactTitle: "Fondatrice"},
	{Company: "Érablière Gagnon", City: "Saint-Georges", Sector: "Agroalimentaire", ContactName: "Luc Gagnon", ContactTitle: "Copropriétaire"},
}

var demoJudges = []string{"Claire Tremblay", "Philippe Roy"}

// SeedDemo fills an empty database with one gala, its categories, companies,
// questions and two judges assigned to every category
func (s *AdminService) SeedDemo(ctx context.Context) (*SeedResult, error) {
	count, err := s.repo.CountGalas(ctx)
	if err != nil {
		return nil, storeErr(err, "galas", 0)
	}
	if count > 0 {
		return nil, ErrAlreadySeeded
	}

	result := &SeedResult{}
	wrap := func(err error) error {
		return errors.Wrap(err, errors.ErrInternal, "seed failed")
	}

	galaID, err := s.repo.CreateGala(ctx, "Gala Excellence", time.Now().Year())
	if err != nil {
		return nil, wrap(err)
	}
	result.GalaID = int(galaID)

	companyIDs := make([]int, 0, len(demoCompanies))
	for _, c := range demoCompanies {
		id, err := s.repo.CreateCompany(ctx, c)
		if err != nil {
			return nil, wrap(err)
		}
		companyIDs = append(companyIDs, int(id))
	}

	var categoryIDs []int
	for ci, sc := range demoCategories {
		catID, err := s.repo.CreateCategory(ctx, result.GalaID, sc.name, sc.segment)
		if err != nil {
			return nil, wrap(err)
		}
		categoryIDs = append(categoryIDs, int(catID))
		result.Categories++

		var questionIDs []int
		for qi, text := range sc.questions {
			q := models.Question{CategoryID: int(catID), Text: text, Weight: 1, Shared: sc.shared}
			id, err := s.repo.CreateQuestion(ctx, q, qi+1)
			if err != nil {
				return nil, wrap(err)
			}
			questionIDs = append(questionIDs, int(id))
		}

		// The narrative category holds every company; the others half each
		for i, companyID := range companyIDs {
			if !sc.shared && i%2 != ci%2 {
				continue
			}
			pID, err := s.repo.CreateParticipant(ctx, int(catID), companyID)
			if err != nil {
				return nil, wrap(err)
			}
			result.Participants++
			for _, qID := range questionIDs {
				answer := "Réponse de " + demoCompanies[i].Company + " à la question."
				if err := s.repo.SetResponse(ctx, int(pID), qID, answer); err != nil {
					return nil, wrap(err)
				}
			}
		}
	}

	for _, name := range demoJudges {
		code, err := auth.GenerateAccessCode(s.randReader)
		if err != nil {
			return nil, errors.Internal(err)
		}
		id, err := s.repo.CreateJudge(ctx, name, code)
		if err != nil {
			return nil, wrap(err)
		}
		for _, catID := range categoryIDs {
			if err := s.repo.AssignJudge(ctx, int(id), catID); err != nil {
				return nil, wrap(err)
			}
		}
		result.Judges = append(result.Judges, models.Judge{ID: int(id), Name: name, AccessCode: code})
	}

	s.log.Info("Demo data seeded", "gala_id", result.GalaID, "categories", result.Categories, "participants", result.Participants)
	return result, nil
}
