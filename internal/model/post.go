package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// PostState is the publishing lifecycle of a post.
type PostState string

const (
	StateDraft     PostState = "draft"
	StatePublished PostState = "published"
)

// Post is an article, either a draft or published.
type Post struct {
	ID           string     `db:"id" json:"id"`
	AuthorID     string     `db:"author_id" json:"author_id"`
	Title        string     `db:"title" json:"title"`
	Excerpt      string     `db:"excerpt" json:"excerpt"`
	Content      string     `db:"content" json:"content"`
	Tags         []string   `db:"-" json:"tags"`
	CoverImage   *string    `db:"cover_image" json:"cover_image"`
	State        PostState  `db:"state" json:"state"`
	ReadTime     string     `db:"read_time" json:"read_time"`
	LikeCount    int        `db:"like_count" json:"like_count"`
	CommentCount int        `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`

	// Joined / per-viewer fields (not in posts table)
	Author       *UserSummary      `db:"-" json:"author,omitempty"`
	IsLiked      bool              `db:"-" json:"is_liked"`
	IsBookmarked bool              `db:"-" json:"is_bookmarked"`
	TagStyles    map[string]string `db:"-" json:"tag_styles,omitempty"`
}

// NewDraft returns an empty draft owned by authorID.
func NewDraft(id, authorID string, now time.Time) Post {
	return Post{
		ID:        id,
		AuthorID:  authorID,
		Tags:      []string{},
		State:     StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Post) Clone() Post {
	out := p
	out.Tags = append([]string{}, p.Tags...)
	if p.CoverImage != nil {
		v := *p.CoverImage
		out.CoverImage = &v
	}
	if p.PublishedAt != nil {
		v := *p.PublishedAt
		out.PublishedAt = &v
	}
	if p.Author != nil {
		v := *p.Author
		out.Author = &v
	}
	if p.TagStyles != nil {
		out.TagStyles = make(map[string]string, len(p.TagStyles))
		for k, v := range p.TagStyles {
			out.TagStyles[k] = v
		}
	}
	return out
}

// IsDraft reports whether the post has not been published yet.
func (p *Post) IsDraft() bool { return p.State != StatePublished }

// HasTag reports whether tag is already attached (exact match).
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag trims and appends tag. Empty values, duplicates and tags beyond
// MaxTags are ignored and report false.
func (p *Post) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || p.HasTag(tag) || len(p.Tags) >= MaxTags {
		return false
	}
	p.Tags = append(p.Tags, tag)
	return true
}

// RemoveTag drops tag if present.
func (p *Post) RemoveTag(tag string) {
	kept := p.Tags[:0]
	for _, t := range p.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	p.Tags = kept
}

// SetCoverImage replaces the cover. nil or "" clears it.
func (p *Post) SetCoverImage(ref *string) {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		p.CoverImage = nil
		return
	}
	v := *ref
	p.CoverImage = &v
}

// ContentIsBlank matches the editor's notion of "nothing written yet".
func ContentIsBlank(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == EmptyParagraph
}

// ValidateForPublish lists every field that blocks publishing.
func (p *Post) ValidateForPublish() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: MsgTitleRequired})
	}
	if ContentIsBlank(p.Content) {
		errs = append(errs, FieldError{Field: "content", Message: MsgContentRequired})
	}
	return errs
}

// Publish moves a draft to published. There is no way back.
func (p *Post) Publish(now time.Time) error {
	if p.State == StatePublished {
		return ErrAlreadyPublished
	}
	p.State = StatePublished
	p.PublishedAt = &now
	return nil
}

// ReadTimeFor renders the reading time label for a word count.
func ReadTimeFor(words int) string {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// DeriveExcerpt cuts plain text down to ExcerptLength runes on a word boundary.
func DeriveExcerpt(plain string) string {
	plain = strings.Join(strings.Fields(plain), " ")
	if utf8.RuneCountInString(plain) <= ExcerptLength {
		return plain
	}
	runes := []rune(plain)[:ExcerptLength]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// UpdateDraftRequest is the body of PATCH /drafts/{id}.
// Nil fields are left untouched.
type UpdateDraftRequest struct {
	Title       *string  `json:"title"`
	Excerpt     *string  `json:"excerpt"`
	AddTags     []string `json:"add_tags"`
	RemoveTags  []string `json:"remove_tags"`
	CoverImage  *string  `json:"cover_image"`
	RemoveCover bool     `json:"remove_cover"`
}

// Position addresses a character inside the document: block index and rune offset.
type Position struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

// SelectionRequest is a caret or range inside the draft body.
type SelectionRequest struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// CommandRequest is the body of POST /drafts/{id}/commands.
// Exactly one of Command or InsertText is normally set; Selection is applied first.
type CommandRequest struct {
	Selection  *SelectionRequest `json:"selection,omitempty"`
	SelectAll  bool              `json:"select_all,omitempty"`
	Command    string            `json:"command,omitempty"`
	InsertText *string           `json:"insert_text,omitempty"`
	NewBlock   bool              `json:"new_block,omitempty"`
}

// ComposerResponse is returned by every composer endpoint.
type ComposerResponse struct {
	Post         Post              `json:"post"`
	Selection    *SelectionRequest `json:"selection,omitempty"`
	Saving       bool              `json:"saving"`
	RejectedTags []string          `json:"rejected_tags,omitempty"`
	Notices      []Notice          `json:"notices,omitempty"`
	Redirect     *string           `json:"redirect,omitempty"`
}

// FeedResponse is the published listing for the home page.
type FeedResponse struct {
	Featured   *Post    `json:"featured,omitempty"`
	Posts      []Post   `json:"posts"`
	Categories []string `json:"categories"`
}

// DashboardResponse lists the viewer's own posts split by state.
type DashboardResponse struct {
	Published []Post `json:"published"`
	Drafts    []Post `json:"drafts"`
}

// ToggleResponse reports the state of a per-viewer toggle.
type ToggleResponse struct {
	Active  bool     `json:"active"`
	Count   int      `json:"count"`
	Notices []Notice `json:"notices,omitempty"`
}

// Post constants
const (
	MaxTags             = 5
	EmptyParagraph      = "<p></p>"
	ExcerptLength       = 160
	WordsPerMinute      = 200
	TagSuggestionLimit  = 5
	CardTagLimit        = 3
	DefaultFeedLimit    = 20
	MaxFeedLimit        = 100
	DashboardPath       = "/dashboard"
	CategoryAll         = "All"
	MaxCoverImageBytes  = 5 * 1024 * 1024
	CoverWidth          = 1200
	CoverHeight         = 600
	CoverFolder         = "covers"
	CoverCacheControl   = "public, max-age=31536000"
	coverDataURIPrefix  = "data:"
	coverHTTPPrefix     = "http://"
	coverHTTPSPrefix    = "https://"
	MsgTitleRequired    = "Title is required"
	MsgContentRequired  = "Content is required"
	MsgFixErrors        = "Please fix the errors in your post"
	MsgDraftSaved       = "Draft saved successfully"
	MsgPostPublished    = "Post published successfully"
	MsgSaveFailed       = "Failed to save post. Please try again."
	MsgPostDeleted      = "Post deleted successfully"
	MsgBookmarkAdded    = "Post saved to your bookmarks"
	MsgBookmarkRemoved  = "Post removed from your bookmarks"
	MsgSignInToComment  = "Please sign in to comment"
	MsgSignInToLike     = "Please sign in to like comments"
	MsgCommentEmpty     = "Comment cannot be empty"
	MsgCommentAdded     = "Comment added successfully"
	MsgCommentFailed    = "Failed to add comment"
	MsgLikeFailed       = "Failed to update like. Please try again."
	MsgSignInToLikePost = "Please sign in to like posts"
	MsgSignInToSave     = "Please sign in to save posts"
)

// Categories offered as filters on the home page.
var Categories = []string{
	CategoryAll, "Design", "Development", "JavaScript", "UI/UX", "Accessibility", "Architecture",
}

// IsCoverReference reports whether ref looks like something a cover can point at.
func IsCoverReference(ref string) bool {
	return strings.HasPrefix(ref, coverDataURIPrefix) ||
		strings.HasPrefix(ref, coverHTTPSPrefix) ||
		strings.HasPrefix(ref, coverHTTPPrefix)
}

// IsDataURI reports whether ref carries inline image bytes.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, coverDataURIPrefix)
}

// Post errors
var (
	ErrPostNotFound       = errors.New("post not found")
	ErrNotPostOwner       = errors.New("not the owner of this post")
	ErrAlreadyPublished   = errors.New("post already published")
	ErrSaveInProgress     = errors.New("save already in progress")
	ErrInvalidCoverImage  = errors.New("invalid cover image")
	ErrUnknownCommand     = errors.New("unknown editor command")
	ErrInvalidReactionKey = errors.New("invalid reaction kind")
)
