package models

import "time"

// ModerationStatus is the review state of a post or a music item.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Valid reports whether s is one of the known moderation states.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Music is a catalog item. LikeCount is denormalized from music_likes.
type Music struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Title      string           `gorm:"not null" json:"title"`
	Artist     string           `gorm:"not null" json:"artist"`
	Album      string           `json:"album"`
	Genre      string           `gorm:"index:idx_music_genre_status" json:"genre"`
	Duration   int              `json:"duration"`
	MusicianID *uint            `gorm:"index" json:"musician_id,omitempty"`
	PlayCount  int64            `gorm:"not null;default:0" json:"play_count"`
	LikeCount  int64            `gorm:"not null;default:0" json:"like_count"`
	Status     ModerationStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_music_genre_status" json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Music) TableName() string {
	return "music"
}

// Post is a user status update. Posts go through moderation before they can be liked.
type Post struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Content   string           `gorm:"not null" json:"content"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	LikeCount int64            `gorm:"not null;default:0" json:"like_count"`
	Status    ModerationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	User      User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Comment targets exactly one post or one music item. ParentCommentID is nil for
// top-level comments; a reply shares its parent's target.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Content         string    `gorm:"not null" json:"content"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PostID          *uint     `gorm:"index" json:"post_id,omitempty"`
	MusicID         *uint     `gorm:"index" json:"music_id,omitempty"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id,omitempty"`
	LikeCount       int64     `gorm:"not null;default:0" json:"like_count"`
	User            User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Replies         []Comment `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PlayRecord is one playback of a music item by a user.
type PlayRecord struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	MusicID  uint      `gorm:"not null;index" json:"music_id"`
	PlayedAt time.Time `gorm:"not null;index" json:"played_at"`
}

// GenreCount is one row of a user's play history aggregated by genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Plays int64  `json:"plays"`
}
