package models

import "time"

// TargetKind names the content type a like points at.
type TargetKind string

const (
	KindPost    TargetKind = "post"
	KindComment TargetKind = "comment"
	KindMusic   TargetKind = "music"
)

// ParseTargetKind accepts the singular and plural route spellings.
func ParseTargetKind(s string) (TargetKind, bool) {
	switch s {
	case "post", "posts":
		return KindPost, true
	case "comment", "comments":
		return KindComment, true
	case "music":
		return KindMusic, true
	}
	return "", false
}

// PostLike is a user's like on a post. The (UserID, PostID) pair is unique
// and the row is hard-deleted on unlike.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike is a user's like on a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MusicLike is a user's like (favorite) on a music item.
type MusicLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_music_like_pair" json:"user_id"`
	MusicID   uint      `gorm:"not null;uniqueIndex:idx_music_like_pair;index" json:"music_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Follow is a directed edge FollowerID -> FollowingID. Self-loops are never stored.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index:idx_follow_following_created" json:"following_id"`
	CreatedAt   time.Time `gorm:"index:idx_follow_following_created" json:"created_at"`

	Follower  User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Following User `gorm:"foreignKey:FollowingID" json:"following,omitempty"`
}

// AllModels lists every table the application migrates.
func AllModels() []any {
	return []any{
		&User{},
		&Music{},
		&Post{},
		&Comment{},
		&PlayRecord{},
		&PostLike{},
		&CommentLike{},
		&MusicLike{},
		&Follow{},
	}
}

// LikeState is the persisted outcome of a like mutation. Changed is false when the
// relation was already in the requested state.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
	Changed   bool  `json:"-"`
}
