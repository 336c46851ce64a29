// Package types contains common types used across the application
package types

import "github.com/okian/vqs/internal/domain/model"

// Result is the outcome of scoring one keyword's candidate batch.
type Result struct {
	Success bool                `json:"success"`
	Keyword string              `json:"keyword"`
	Videos  []model.ScoredVideo `json:"videos"`
	Stats   *model.BatchStats   `json:"stats"`
	Message string              `json:"message,omitempty"`
	// Total is the number of candidates received, Skipped how many of them
	// were dropped as malformed.
	Total   int `json:"total"`
	Skipped int `json:"skipped"`
}

// Failed builds an unsuccessful result with an empty video list.
func Failed(keyword, message string) Result {
	return Result{
		Success: false,
		Keyword: keyword,
		Videos:  []model.ScoredVideo{},
		Message: message,
	}
}
