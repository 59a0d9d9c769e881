package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminTogglePost",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/posts/{id}/toggle",
		Summary:     "Toggle post publication",
		Description: "Hides a published post or publishes a hidden one (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminTogglePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeletePost",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/posts/{id}",
		Summary:     "Delete any post",
		Description: "Deletes a post with its media, comments and reactions (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDeletePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/comments/{id}",
		Summary:     "Delete comment",
		Description: "Deletes a comment (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminDeleteComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminSearchPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/posts",
		Summary:     "Search all posts",
		Description: "Searches title, body and summary of every post including hidden ones (admin only)",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleAdminSearchPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminModerationLogs",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/moderation/logs",
		Summary:     "Moderation log",
		Description: "Returns the newest moderation log entries (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleModerationLogs)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetModerationSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/moderation/settings",
		Summary:     "Get moderation settings",
		Description: "Returns whether automatic moderation is on (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleGetModerationSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminUpdateModerationSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/moderation/settings",
		Summary:     "Update moderation settings",
		Description: "Turns automatic moderation on or off (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleUpdateModerationSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetBannedWords",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/moderation/banned-words",
		Summary:     "Get banned words",
		Description: "Returns the active banned word list (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleGetBannedWords)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminReplaceBannedWords",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/moderation/banned-words",
		Summary:     "Replace banned words",
		Description: "Replaces the banned word list from one-word-per-line text (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleReplaceBannedWords)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminScanContent",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/moderation/scan",
		Summary:     "Scan for banned words",
		Description: "Re-checks published posts and comments against the word list, optionally deleting offenders (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleScanContent)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminModeratedTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/moderation/tags",
		Summary:     "Moderated tags",
		Description: "Lists tags whose posts are held for review (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleModeratedTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminToggleTagModeration",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/tags/{id}/moderation",
		Summary:     "Toggle tag moderation",
		Description: "Marks or unmarks a tag as moderated; marking hides its published posts (admin only)",
		Tags:        []string{"Admin", "Moderation"},
		Security:    bearer,
	}, s.handleToggleTagModeration)
}

// === DTOs ===

// CommentIDInput identifies a comment.
type CommentIDInput struct {
	ID string `path:"id" doc:"Comment ID"`
}

// TagIDInput identifies a tag.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// AdminSearchInput contains the admin search query.
type AdminSearchInput struct {
	Query string `query:"q" doc:"Text in title, body or summary; empty lists the newest posts"`
}

// ModerationLogsInput contains log listing parameters.
type ModerationLogsInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"500" doc:"Maximum entries, 0 for the default"`
}

// ModerationLogsResponse contains moderation log entries.
type ModerationLogsResponse struct {
	Logs []*domain.ModerationLog `json:"logs" doc:"Entries, newest first"`
}

// ModerationLogsOutput wraps log entries for Huma.
type ModerationLogsOutput struct {
	Body ModerationLogsResponse
}

// ModerationSettingsOutput wraps the settings for Huma.
type ModerationSettingsOutput struct {
	Body domain.ModerationSettings
}

// UpdateModerationSettingsRequest is the request body for changing settings.
type UpdateModerationSettingsRequest struct {
	AutoEnabled bool `json:"auto_enabled" doc:"Screen submissions automatically"`
}

// UpdateModerationSettingsInput wraps the settings update for Huma.
type UpdateModerationSettingsInput struct {
	Body UpdateModerationSettingsRequest
}

// BannedWordsOutput wraps the word list for Huma.
type BannedWordsOutput struct {
	Body domain.BannedWordList
}

// ReplaceBannedWordsRequest carries the new list as entered, one word per line.
type ReplaceBannedWordsRequest struct {
	Words string `json:"words" doc:"One word per line; blank lines and duplicates are ignored"`
}

// ReplaceBannedWordsInput wraps the word list update for Huma.
type ReplaceBannedWordsInput struct {
	Body ReplaceBannedWordsRequest
}

// ScanInput contains scan options.
type ScanInput struct {
	Delete bool `query:"delete" doc:"Delete offending content instead of only reporting it"`
}

// ScanOutput wraps the scan report for Huma.
type ScanOutput struct {
	Body *service.ScanReport
}

// ModeratedTagsResponse lists moderated tags.
type ModeratedTagsResponse struct {
	Tags []domain.ModeratedTag `json:"tags" doc:"Moderated tags"`
}

// ModeratedTagsOutput wraps moderated tags for Huma.
type ModeratedTagsOutput struct {
	Body ModeratedTagsResponse
}

// TagModerationOutput wraps a tag moderation toggle for Huma.
type TagModerationOutput struct {
	Body *service.TagModerationResult
}

// === Handlers ===

func (s *Server) handleAdminTogglePost(ctx context.Context, input *PostIDInput) (*PostOutput, error) {
	post, err := s.services.Moderation.TogglePost(ctx, callerFrom(ctx), input.ID)
	if err != nil {
		return nil, s.fail(ctx, "toggle post", err)
	}
	return &PostOutput{Body: post}, nil
}

func (s *Server) handleAdminDeletePost(ctx context.Context, input *PostIDInput) (*MessageOutput, error) {
	if err := s.services.Moderation.DeletePost(ctx, callerFrom(ctx), input.ID); err != nil {
		return nil, s.fail(ctx, "admin delete post", err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "post deleted"}}, nil
}

func (s *Server) handleAdminDeleteComment(ctx context.Context, input *CommentIDInput) (*MessageOutput, error) {
	if err := s.services.Moderation.DeleteComment(ctx, callerFrom(ctx), input.ID); err != nil {
		return nil, s.fail(ctx, "admin delete comment", err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "comment deleted"}}, nil
}

func (s *Server) handleAdminSearchPosts(ctx context.Context, input *AdminSearchInput) (*PostListOutput, error) {
	posts, err := s.services.Moderation.SearchPosts(ctx, callerFrom(ctx), input.Query)
	if err != nil {
		return nil, s.fail(ctx, "admin search posts", err)
	}
	return &PostListOutput{Body: PostListResponse{Posts: nonNil(posts)}}, nil
}

func (s *Server) handleModerationLogs(ctx context.Context, input *ModerationLogsInput) (*ModerationLogsOutput, error) {
	logs, err := s.services.Moderation.Logs(ctx, callerFrom(ctx), input.Limit)
	if err != nil {
		return nil, s.fail(ctx, "moderation logs", err)
	}
	return &ModerationLogsOutput{Body: ModerationLogsResponse{Logs: nonNil(logs)}}, nil
}

func (s *Server) handleGetModerationSettings(ctx context.Context, _ *struct{}) (*ModerationSettingsOutput, error) {
	settings, err := s.services.Moderation.Settings(ctx, callerFrom(ctx))
	if err != nil {
		return nil, s.fail(ctx, "moderation settings", err)
	}
	return &ModerationSettingsOutput{Body: settings}, nil
}

func (s *Server) handleUpdateModerationSettings(ctx context.Context, input *UpdateModerationSettingsInput) (*ModerationSettingsOutput, error) {
	settings, err := s.services.Moderation.SetAutoModeration(ctx, callerFrom(ctx), input.Body.AutoEnabled)
	if err != nil {
		return nil, s.fail(ctx, "update moderation settings", err)
	}
	return &ModerationSettingsOutput{Body: settings}, nil
}

func (s *Server) handleGetBannedWords(ctx context.Context, _ *struct{}) (*BannedWordsOutput, error) {
	list, err := s.services.Moderation.BannedWords(callerFrom(ctx))
	if err != nil {
		return nil, s.fail(ctx, "banned words", err)
	}
	list.Words = nonNil(list.Words)
	return &BannedWordsOutput{Body: list}, nil
}

func (s *Server) handleReplaceBannedWords(ctx context.Context, input *ReplaceBannedWordsInput) (*BannedWordsOutput, error) {
	list, err := s.services.Moderation.ReplaceBannedWords(ctx, callerFrom(ctx), input.Body.Words)
	if err != nil {
		return nil, s.fail(ctx, "replace banned words", err)
	}
	return &BannedWordsOutput{Body: *list}, nil
}

func (s *Server) handleScanContent(ctx context.Context, input *ScanInput) (*ScanOutput, error) {
	report, err := s.services.Scan.ScanAs(ctx, callerFrom(ctx), input.Delete)
	if err != nil {
		return nil, s.fail(ctx, "scan content", err)
	}
	report.Posts = nonNil(report.Posts)
	report.Comments = nonNil(report.Comments)
	return &ScanOutput{Body: report}, nil
}

func (s *Server) handleModeratedTags(ctx context.Context, _ *struct{}) (*ModeratedTagsOutput, error) {
	tags, err := s.services.Moderation.ModeratedTags(ctx, callerFrom(ctx))
	if err != nil {
		return nil, s.fail(ctx, "moderated tags", err)
	}
	return &ModeratedTagsOutput{Body: ModeratedTagsResponse{Tags: nonNil(tags)}}, nil
}

func (s *Server) handleToggleTagModeration(ctx context.Context, input *TagIDInput) (*TagModerationOutput, error) {
	res, err := s.services.Moderation.ToggleTagModeration(ctx, callerFrom(ctx), input.ID)
	if err != nil {
		return nil, s.fail(ctx, "toggle tag moderation", err)
	}
	return &TagModerationOutput{Body: res}, nil
}
