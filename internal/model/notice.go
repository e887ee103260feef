package model

// NoticeLevel distinguishes success toasts from error toasts.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message produced by an operation.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// ReactionKind is a per-viewer toggle on a post.
type ReactionKind string

const (
	ReactionLike     ReactionKind = "like"
	ReactionBookmark ReactionKind = "bookmark"
)

// Valid reports whether k is a known reaction.
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionBookmark
}
