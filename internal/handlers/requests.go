package handlers

// AdminLoginRequest represents an administrator login
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// JudgeLoginRequest represents a judge login with an access code
type JudgeLoginRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// LockRequest optionally names who locks a gala
type LockRequest struct {
	By string `json:"by" validate:"max=100"`
}

// SettingsUpdateRequest represents a request to update settings
type SettingsUpdateRequest struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// DatabaseResetRequest represents a request to reset database tables
type DatabaseResetRequest struct {
	Tables []string `json:"tables" validate:"required,min=1,dive,required"`
}

// scopeParams are the path identifiers of a judge request; nil when the
// route does not carry them
type scopeParams struct {
	GalaID        *int `validate:"required,gt=0"`
	CategoryID    *int `validate:"omitempty,gt=0"`
	ParticipantID *int `validate:"omitempty,gt=0"`
	QuestionID    *int `validate:"omitempty,gt=0"`
}
