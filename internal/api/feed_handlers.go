package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ProtheticGlitch/Enterra/internal/recommend"
)

func (s *Server) registerFeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations",
		Summary:     "Recommended posts",
		Description: "Returns a personal feed, or popular and fresh posts for new and anonymous users",
		Tags:        []string{"Feed"},
		Security:    bearer,
	}, s.handleRecommendations)
}

// RecommendationsInput contains feed parameters.
type RecommendationsInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Maximum posts, 0 for the default"`
}

// RecommendationsOutput wraps a feed for Huma.
type RecommendationsOutput struct {
	Body *recommend.Result
}

func (s *Server) handleRecommendations(ctx context.Context, input *RecommendationsInput) (*RecommendationsOutput, error) {
	res, err := s.services.Recommendations.Recommend(ctx, callerFrom(ctx), input.Limit)
	if err != nil {
		return nil, s.fail(ctx, "recommendations", err)
	}
	res.Posts = nonNil(res.Posts)
	return &RecommendationsOutput{Body: res}, nil
}
