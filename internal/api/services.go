package api

import (
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

// Services groups the business services used by the API server.
// This keeps the parameter count of NewServer down and eases testing.
type Services struct {
	Posts           *service.PostService
	Interactions    *service.InteractionService
	Recommendations *service.RecommendationService
	Tags            *service.TagService
	Moderation      *service.ModerationService
	Scan            *service.ScanService
	Search          *search.SearchIndex // Optional; health reports it when set
}
