package handlers

import "github.com/abrezinsky/galajudge/internal/models"

// JudgeLoginResponse is returned after a judge logs in
type JudgeLoginResponse struct {
	Judge models.Judge `json:"judge"`
}

// GalasResponse lists galas for the administrator
type GalasResponse struct {
	Galas []models.Gala `json:"galas"`
}

// GalaLockResponse is the response for lock changes
type GalaLockResponse struct {
	Gala models.Gala `json:"gala"`
}

// SubmissionsResponse lists the submission state of every judge of a gala
type SubmissionsResponse struct {
	GalaID      int                 `json:"gala_id"`
	Submissions []models.Submission `json:"submissions"`
}

// JudgesResponse lists judges with their access codes
type JudgesResponse struct {
	Judges []models.Judge `json:"judges"`
}

// AccessCodeResponse is returned after an access code is regenerated
type AccessCodeResponse struct {
	JudgeID    int    `json:"juge_id"`
	AccessCode string `json:"access_code"`
}

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL string `json:"base_url"`
}

// HealthResponse reports that the server is up
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
