package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/duplicate"
	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/search"
	"github.com/ProtheticGlitch/Enterra/internal/service"
)

func (s *Server) registerPostRoutes() {
	// Create and edit take multipart bodies (JSON payload plus an optional
	// media file) and are served by chi directly.
	s.router.Post("/api/v1/posts", s.handleCreatePost)
	s.router.Put("/api/v1/posts/{id}", s.handleUpdatePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts",
		Summary:     "List posts",
		Description: "Returns published posts newest first, filtered by category, tag and text",
		Tags:        []string{"Posts"},
	}, s.handleListPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "randomPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/random",
		Summary:     "Random post",
		Description: "Returns one published post picked at random",
		Tags:        []string{"Posts"},
	}, s.handleRandomPost)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/search",
		Summary:     "Search posts",
		Description: "Full-text search over published posts",
		Tags:        []string{"Posts"},
	}, s.handleSearchPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Get post",
		Description: "Returns a post with comments, reaction counts and the caller's own interaction",
		Tags:        []string{"Posts"},
		Security:    bearer,
	}, s.handleGetPost)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePost",
		Method:      http.MethodDelete,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Delete post",
		Description: "Deletes a post (author or admin)",
		Tags:        []string{"Posts"},
		Security:    bearer,
	}, s.handleDeletePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "similarPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}/similar",
		Summary:     "Similar posts",
		Description: "Lists published posts whose text reads like this one, most similar first",
		Tags:        []string{"Posts"},
		Security:    bearer,
	}, s.handleSimilarPosts)
}

// === DTOs ===

// ListPostsInput contains feed filters.
type ListPostsInput struct {
	Category string `query:"category" doc:"Category slug"`
	Tag      string `query:"tag" doc:"Tag slug"`
	Query    string `query:"q" doc:"Case-insensitive text in title or body"`
	Limit    int    `query:"limit" minimum:"0" maximum:"200" doc:"Maximum posts, 0 for all"`
}

// PostListResponse contains a list of posts.
type PostListResponse struct {
	Posts []*domain.Post `json:"posts" doc:"Posts"`
}

// PostListOutput wraps a post list for Huma.
type PostListOutput struct {
	Body PostListResponse
}

// PostOutput wraps a single post for Huma.
type PostOutput struct {
	Body *domain.Post
}

// SearchPostsInput contains search parameters.
type SearchPostsInput struct {
	Query    string `query:"q" doc:"Search query"`
	Tag      string `query:"tag" doc:"Tag slug"`
	Category string `query:"category" doc:"Category slug"`
	Author   string `query:"author" doc:"Author user ID"`
	Sort     string `query:"sort" enum:"relevance,recent" default:"relevance" doc:"Sort order"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum hits"`
	Offset   int    `query:"offset" minimum:"0" doc:"Hits to skip"`
}

// PostIDInput identifies a post.
type PostIDInput struct {
	ID string `path:"id" doc:"Post ID"`
}

// PostDetailOutput wraps a post as seen by the caller.
type PostDetailOutput struct {
	Body *service.PostDetail
}

// SimilarPostsResponse lists similar posts with their scores.
type SimilarPostsResponse struct {
	Matches []duplicate.Match `json:"matches" doc:"Similar posts, best first"`
}

// SimilarPostsOutput wraps similar posts for Huma.
type SimilarPostsOutput struct {
	Body SimilarPostsResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListPosts(ctx context.Context, input *ListPostsInput) (*PostListOutput, error) {
	posts, err := s.services.Posts.List(ctx, domain.PostFilter{
		CategorySlug: input.Category,
		TagSlug:      input.Tag,
		Query:        input.Query,
		Limit:        input.Limit,
	})
	if err != nil {
		return nil, s.fail(ctx, "list posts", err)
	}
	return &PostListOutput{Body: PostListResponse{Posts: nonNil(posts)}}, nil
}

func (s *Server) handleRandomPost(ctx context.Context, _ *struct{}) (*PostOutput, error) {
	post, err := s.services.Posts.Random(ctx)
	if err != nil {
		return nil, s.fail(ctx, "random post", err)
	}
	return &PostOutput{Body: post}, nil
}

func (s *Server) handleSearchPosts(ctx context.Context, input *SearchPostsInput) (*PostListOutput, error) {
	posts, err := s.services.Posts.Search(ctx, search.SearchParams{
		Query:        input.Query,
		TagSlug:      input.Tag,
		CategorySlug: input.Category,
		AuthorID:     input.Author,
		SortBy:       input.Sort,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return nil, s.fail(ctx, "search posts", err)
	}
	return &PostListOutput{Body: PostListResponse{Posts: nonNil(posts)}}, nil
}

func (s *Server) handleGetPost(ctx context.Context, input *PostIDInput) (*PostDetailOutput, error) {
	detail, err := s.services.Posts.Get(ctx, callerFrom(ctx), input.ID)
	if err != nil {
		return nil, s.fail(ctx, "get post", err)
	}
	return &PostDetailOutput{Body: detail}, nil
}

func (s *Server) handleDeletePost(ctx context.Context, input *PostIDInput) (*MessageOutput, error) {
	if err := s.services.Posts.Delete(ctx, callerFrom(ctx), input.ID); err != nil {
		return nil, s.fail(ctx, "delete post", err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "post deleted"}}, nil
}

func (s *Server) handleSimilarPosts(ctx context.Context, input *PostIDInput) (*SimilarPostsOutput, error) {
	matches, err := s.services.Posts.Similar(ctx, callerFrom(ctx), input.ID)
	if err != nil {
		return nil, s.fail(ctx, "similar posts", err)
	}
	if matches == nil {
		matches = []duplicate.Match{}
	}
	return &SimilarPostsOutput{Body: SimilarPostsResponse{Matches: matches}}, nil
}

// handleCreatePost accepts either a JSON body or multipart/form-data with
// a "payload" JSON field and an optional "media" file.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := s.readPostInput(w, r)
	if err != nil {
		s.writeFailure(w, r, "create post", err)
		return
	}
	defer cleanup()

	res, err := s.services.Posts.Create(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		s.writeFailure(w, r, "create post", err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := s.readPostInput(w, r)
	if err != nil {
		s.writeFailure(w, r, "update post", err)
		return
	}
	defer cleanup()

	res, err := s.services.Posts.Update(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeFailure(w, r, "update post", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// readPostInput decodes a post submission. The returned cleanup closes the
// media file and removes multipart temp files.
func (s *Server) readPostInput(w http.ResponseWriter, r *http.Request) (service.PostInput, func(), error) {
	var in service.PostInput
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, noop, bodyError(err)
		}
		return in, noop, nil
	}

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		return in, noop, bodyError(err)
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() } //nolint:errcheck // Temp files only

	payload := form.Value["payload"]
	if len(payload) == 0 {
		cleanup()
		return in, noop, domainerrors.ValidationWithDetails("missing payload",
			map[string]string{"payload": "multipart body needs a JSON payload field"})
	}
	if err := json.Unmarshal([]byte(payload[0]), &in); err != nil {
		cleanup()
		return in, noop, bodyError(err)
	}

	files := form.File["media"]
	if len(files) == 0 {
		return in, cleanup, nil
	}
	file, err := openUpload(files[0])
	if err != nil {
		cleanup()
		return in, noop, err
	}
	in.Media = &service.Upload{Filename: files[0].Filename, Content: file}
	return in, func() {
		_ = file.Close() //nolint:errcheck // Read-only
		cleanup()
	}, nil
}

func openUpload(fh *multipart.FileHeader) (multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, domainerrors.Validation("unreadable media file")
	}
	return f, nil
}

// bodyError turns a body decoding failure into a client error.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &APIError{
			status:  http.StatusRequestEntityTooLarge,
			Code:    string(domainerrors.CodeValidation),
			Message: "request body too large",
		}
	}
	return domainerrors.Validation("malformed request body")
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
