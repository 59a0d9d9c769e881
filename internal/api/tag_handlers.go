package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "Tag cloud",
		Description: "Returns tags with their published post counts, most used first",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/check",
		Summary:     "Check tag",
		Description: "Reports whether a tag with the slug of this name already exists",
		Tags:        []string{"Tags"},
	}, s.handleCheckTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/suggestions",
		Summary:     "Suggest tags",
		Description: "Returns up to 10 tags whose name contains the query (2 characters minimum)",
		Tags:        []string{"Tags"},
	}, s.handleSuggestTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "recommendTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/recommendations",
		Summary:     "Recommended tags",
		Description: "Returns the caller's top tags, padded with popular ones",
		Tags:        []string{"Tags"},
		Security:    bearer,
	}, s.handleRecommendTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the categories derived from tags so far",
		Tags:        []string{"Tags"},
	}, s.handleListCategories)
}

// === DTOs ===

// TagCloudResponse contains tags with post counts.
type TagCloudResponse struct {
	Tags []domain.TagCount `json:"tags" doc:"Tags, most used first"`
}

// TagCloudOutput wraps the tag cloud for Huma.
type TagCloudOutput struct {
	Body TagCloudResponse
}

// CheckTagInput contains the tag name to check.
type CheckTagInput struct {
	Name string `query:"name" required:"true" doc:"Tag name as typed"`
}

// CheckTagOutput wraps the check result for Huma.
type CheckTagOutput struct {
	Body *service.TagCheck
}

// SuggestTagsInput contains the suggestion query.
type SuggestTagsInput struct {
	Query string `query:"q" doc:"Part of a tag name"`
}

// TagListResponse contains a list of tags.
type TagListResponse struct {
	Tags []*domain.Tag `json:"tags" doc:"Tags"`
}

// TagListOutput wraps a tag list for Huma.
type TagListOutput struct {
	Body TagListResponse
}

// TagScoresResponse contains scored tags.
type TagScoresResponse struct {
	Tags []domain.TagScore `json:"tags" doc:"Tags, highest score first"`
}

// TagScoresOutput wraps scored tags for Huma.
type TagScoresOutput struct {
	Body TagScoresResponse
}

// CategoryListResponse contains categories.
type CategoryListResponse struct {
	Categories []*domain.Category `json:"categories" doc:"Categories"`
}

// CategoryListOutput wraps categories for Huma.
type CategoryListOutput struct {
	Body CategoryListResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagCloudOutput, error) {
	cloud, err := s.services.Tags.Cloud(ctx)
	if err != nil {
		return nil, s.fail(ctx, "tag cloud", err)
	}
	return &TagCloudOutput{Body: TagCloudResponse{Tags: nonNil(cloud)}}, nil
}

func (s *Server) handleCheckTag(ctx context.Context, input *CheckTagInput) (*CheckTagOutput, error) {
	check, err := s.services.Tags.Check(ctx, input.Name)
	if err != nil {
		return nil, s.fail(ctx, "check tag", err)
	}
	return &CheckTagOutput{Body: check}, nil
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*TagListOutput, error) {
	tags, err := s.services.Tags.Suggestions(ctx, input.Query)
	if err != nil {
		return nil, s.fail(ctx, "suggest tags", err)
	}
	return &TagListOutput{Body: TagListResponse{Tags: nonNil(tags)}}, nil
}

func (s *Server) handleRecommendTags(ctx context.Context, _ *struct{}) (*TagScoresOutput, error) {
	scores, err := s.services.Tags.Recommendations(ctx, callerFrom(ctx))
	if err != nil {
		return nil, s.fail(ctx, "recommend tags", err)
	}
	return &TagScoresOutput{Body: TagScoresResponse{Tags: nonNil(scores)}}, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoryListOutput, error) {
	cats, err := s.services.Tags.Categories(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list categories", err)
	}
	return &CategoryListOutput{Body: CategoryListResponse{Categories: nonNil(cats)}}, nil
}
