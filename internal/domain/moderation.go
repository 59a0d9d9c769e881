package domain

import "time"

// LogKind identifies what a moderation log entry records.
type LogKind string

const (
	LogPostDeleted     LogKind = "post_deleted"
	LogCommentBlocked  LogKind = "comment_blocked"
	LogFileBlocked     LogKind = "file_blocked"
	LogPostAutoHide    LogKind = "post_autohide"
	LogWordListUpdated LogKind = "wordlist_updated"
)

// Reasons recorded with log entries.
const (
	ReasonBadWords          = "bad_words"
	ReasonBadWordsEdit      = "bad_words_edit"
	ReasonBadWordsScan      = "bad_words_scan"
	ReasonModeratedTags     = "moderated_tags"
	ReasonModeratedTagsEdit = "moderated_tags_edit"
	ReasonBadFile           = "bad_extension_or_name"
	ReasonAdminUpdate       = "admin_update"
)

// ModerationLog is an append-only audit entry. Entries are never updated
// or deleted; PostID and CommentID may point at rows that no longer exist.
type ModerationLog struct {
	ID        string    `json:"id"`
	Kind      LogKind   `json:"kind"`
	Reason    string    `json:"reason"`
	Snippet   string    `json:"snippet,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ModerationSettings is the single process-wide settings row.
type ModerationSettings struct {
	AutoEnabled bool      `json:"auto_enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultModerationSettings applies when no row has been written yet.
func DefaultModerationSettings() ModerationSettings {
	return ModerationSettings{AutoEnabled: true}
}

// BannedWordList is a persisted, versioned word list. Each replacement
// bumps Version by one.
type BannedWordList struct {
	Words     []string  `json:"words"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// ModeratedTag marks a tag whose posts are forced hidden.
type ModeratedTag struct {
	TagID     string    `json:"tag_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome tells a submitter what happened to their content.
type Outcome string

const (
	OutcomePublished     Outcome = "published"
	OutcomeDraft         Outcome = "draft"          // Author chose not to publish
	OutcomePendingReview Outcome = "pending_review" // Retained but hidden by tag moderation
	OutcomeRemoved       Outcome = "removed"        // Deleted by the banned-word check
)
