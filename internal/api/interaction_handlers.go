package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

func (s *Server) registerInteractionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "reactToPost",
		Method:      http.MethodPost,
		Path:        "/api/v1/posts/{id}/reactions/{code}",
		Summary:     "Toggle reaction",
		Description: "Sets, switches or clears the caller's like or dislike on a post",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleReact)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{id}/comments",
		Summary:       "Add comment",
		Description:   "Adds a comment to a post after screening it for banned words",
		Tags:          []string{"Interactions"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleAddComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "recordView",
		Method:      http.MethodPost,
		Path:        "/api/v1/posts/{id}/view",
		Summary:     "Record view",
		Description: "Merges a viewing progress report into the caller's view of a post",
		Tags:        []string{"Interactions"},
		Security:    bearer,
	}, s.handleRecordView)
}

// === DTOs ===

// ReactInput identifies the post and the reaction to toggle.
type ReactInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Code string `path:"code" doc:"Reaction code: like or dislike"`
}

// ReactOutput wraps the reaction state for Huma.
type ReactOutput struct {
	Body *service.ReactionResult
}

// CommentRequest is the body of a new comment.
type CommentRequest struct {
	Body string `json:"body" maxLength:"1000" doc:"Comment text"`
}

// AddCommentInput wraps a new comment for Huma.
type AddCommentInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body CommentRequest
}

// CommentOutput wraps a stored comment for Huma.
type CommentOutput struct {
	Body *domain.Comment
}

// ViewRequest is a viewing progress report. Omitted fields count as zero.
type ViewRequest struct {
	Progress     float64 `json:"progress,omitempty" minimum:"0" maximum:"1" doc:"Fraction viewed, 0 to 1"`
	IsComplete   bool    `json:"is_complete,omitempty" doc:"Whether the post was viewed to the end"`
	ViewDuration float64 `json:"view_duration,omitempty" minimum:"0" doc:"Seconds spent viewing"`
}

// RecordViewInput wraps a view report for Huma.
type RecordViewInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body ViewRequest
}

// ViewOutput wraps the merged view for Huma.
type ViewOutput struct {
	Body *domain.PostView
}

// === Handlers ===

func (s *Server) handleReact(ctx context.Context, input *ReactInput) (*ReactOutput, error) {
	res, err := s.services.Interactions.React(ctx, callerFrom(ctx), input.ID, input.Code)
	if err != nil {
		return nil, s.fail(ctx, "react", err)
	}
	return &ReactOutput{Body: res}, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
	c, err := s.services.Interactions.AddComment(ctx, callerFrom(ctx), input.ID, service.CommentInput{Body: input.Body.Body})
	if err != nil {
		return nil, s.fail(ctx, "add comment", err)
	}
	return &CommentOutput{Body: c}, nil
}

func (s *Server) handleRecordView(ctx context.Context, input *RecordViewInput) (*ViewOutput, error) {
	view, err := s.services.Interactions.RecordView(ctx, callerFrom(ctx), input.ID, service.ViewInput{
		Progress:     input.Body.Progress,
		IsComplete:   input.Body.IsComplete,
		ViewDuration: input.Body.ViewDuration,
	})
	if err != nil {
		return nil, s.fail(ctx, "record view", err)
	}
	return &ViewOutput{Body: view}, nil
}
