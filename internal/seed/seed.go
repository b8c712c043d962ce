// Package seed populates a database with fake users, catalog and engagement for
// development. Engagement goes through the services so every counter stays in step with
// its relation rows.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"resonance/internal/middleware"
	"resonance/internal/models"
	"resonance/internal/repository"
	"resonance/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Users          int
	Music          int
	Posts          int
	PlaysPerUser   int
	LikesPerUser   int
	FollowsPerUser int
	// PendingEvery leaves every n-th post and track unreviewed. Zero approves everything.
	PendingEvery int
	Seed         int64
	Clean        bool
}

// DefaultOptions is a small but well connected data set.
var DefaultOptions = Options{
	Users:          50,
	Music:          200,
	Posts:          150,
	PlaysPerUser:   20,
	LikesPerUser:   10,
	FollowsPerUser: 8,
	PendingEvery:   10,
	Seed:           1,
	Clean:          true,
}

// Report counts what a run created.
type Report struct {
	Users     int `json:"users"`
	Music     int `json:"music"`
	Posts     int `json:"posts"`
	Plays     int `json:"plays"`
	Likes     int `json:"likes"`
	Follows   int `json:"follows"`
	Comments  int `json:"comments"`
	Moderated int `json:"moderated"`
}

var genres = []string{"rock", "jazz", "hip-hop", "electronic", "classical", "folk", "pop", "metal"}

// Seeder writes fake data through the application services.
type Seeder struct {
	db         *gorm.DB
	opts       Options
	faker      *gofakeit.Faker
	rng        *rand.Rand
	users      repository.UserRepository
	music      repository.MusicRepository
	moderation *service.ModerationService
	engagement *service.EngagementService
	follows    *service.FollowService
	plays      *service.PlayService
	comments   *service.CommentService
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	musicRepo := repository.NewMusicRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	moderation := service.NewModerationService(postRepo, musicRepo, userRepo)
	return &Seeder{
		db:         db,
		opts:       opts,
		faker:      gofakeit.New(opts.Seed),
		rng:        rand.New(rand.NewSource(opts.Seed)),
		users:      userRepo,
		music:      musicRepo,
		moderation: moderation,
		engagement: service.NewEngagementService(likeRepo, moderation.PostStatus, nil, 0),
		follows:    service.NewFollowService(repository.NewFollowRepository(db), userRepo, nil),
		plays:      service.NewPlayService(repository.NewPlayRepository(db), musicRepo),
		comments:   service.NewCommentService(repository.NewCommentRepository(db), postRepo, musicRepo, userRepo.IsAdmin),
	}
}

// ClearAll deletes every row the seeder can create, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"play_records", "post_likes", "comment_likes", "music_likes", "follows", "comments", "posts", "music", "users"}
	for _, table := range tables {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run seeds the database. The first user is an admin and reviews the seeded content.
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	var report Report
	if s.opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return report, err
		}
	}

	users, err := s.createUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to create users: %w", err)
	}
	report.Users = len(users)
	if len(users) == 0 {
		return report, nil
	}
	admin := users[0]

	tracks, err := s.createMusic(ctx, admin.ID, &report)
	if err != nil {
		return report, fmt.Errorf("failed to create music: %w", err)
	}
	posts, err := s.createPosts(ctx, users, admin.ID, &report)
	if err != nil {
		return report, fmt.Errorf("failed to create posts: %w", err)
	}

	for _, u := range users {
		if err := s.engage(ctx, u, users, tracks, posts, &report); err != nil {
			return report, fmt.Errorf("failed to seed engagement for user %d: %w", u.ID, err)
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", report.Users),
		slog.Int("music", report.Music),
		slog.Int("posts", report.Posts),
		slog.Int("plays", report.Plays),
		slog.Int("likes", report.Likes),
		slog.Int("follows", report.Follows),
		slog.Int("comments", report.Comments),
	)
	return report, nil
}

func (s *Seeder) createUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		u := &models.User{
			Username: fmt.Sprintf("%s%d", s.faker.Username(), i),
			Email:    fmt.Sprintf("user%d.%s", i, s.faker.Email()),
			Bio:      s.faker.HipsterSentence(8),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%d", i),
			IsAdmin:  i == 0,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) pending(i int) bool {
	return s.opts.PendingEvery > 0 && i%s.opts.PendingEvery == s.opts.PendingEvery-1
}

// createMusic returns the tracks that ended up approved.
func (s *Seeder) createMusic(ctx context.Context, adminID uint, report *Report) ([]*models.Music, error) {
	approved := make([]*models.Music, 0, s.opts.Music)
	for i := 0; i < s.opts.Music; i++ {
		m := &models.Music{
			Title:    s.faker.HipsterSentence(3),
			Artist:   s.faker.Name(),
			Album:    s.faker.HipsterWord(),
			Genre:    genres[s.rng.Intn(len(genres))],
			Duration: 120 + s.rng.Intn(300),
			Status:   models.StatusPending,
		}
		if err := s.music.Create(ctx, m); err != nil {
			return nil, err
		}
		report.Music++
		if s.pending(i) {
			continue
		}
		if err := s.moderation.ApproveMusic(ctx, adminID, m.ID); err != nil {
			return nil, err
		}
		m.Status = models.StatusApproved
		report.Moderated++
		approved = append(approved, m)
	}
	return approved, nil
}

// createPosts submits posts from random authors and returns the approved ones.
func (s *Seeder) createPosts(ctx context.Context, users []*models.User, adminID uint, report *Report) ([]*models.Post, error) {
	approved := make([]*models.Post, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		author := users[s.rng.Intn(len(users))]
		post, err := s.moderation.SubmitPost(ctx, author.ID, s.faker.Paragraph(1, 3, 12, " "))
		if err != nil {
			return nil, err
		}
		report.Posts++
		if post.Status != models.StatusApproved {
			if s.pending(i) {
				continue
			}
			if err := s.moderation.ApprovePost(ctx, adminID, post.ID); err != nil {
				return nil, err
			}
			report.Moderated++
		}
		approved = append(approved, post)
	}
	return approved, nil
}

// engage records plays, likes, follows and a comment for one user. Targets are drawn
// without replacement so every like is a new one.
func (s *Seeder) engage(ctx context.Context, u *models.User, users []*models.User, tracks []*models.Music, posts []*models.Post, report *Report) error {
	for _, idx := range s.pick(len(tracks), s.opts.PlaysPerUser) {
		if err := s.plays.RecordPlay(ctx, u.ID, tracks[idx].ID); err != nil {
			return err
		}
		report.Plays++
	}

	for _, idx := range s.pick(len(tracks), s.opts.LikesPerUser) {
		state, err := s.engagement.ToggleLike(ctx, u.ID, models.KindMusic, tracks[idx].ID)
		if err != nil {
			return err
		}
		if state.Changed {
			report.Likes++
		}
	}
	for _, idx := range s.pick(len(posts), s.opts.LikesPerUser/2) {
		state, err := s.engagement.LikePost(ctx, u.ID, posts[idx].ID)
		if err != nil {
			return err
		}
		if state.Changed {
			report.Likes++
		}
	}

	for _, idx := range s.pick(len(users), s.opts.FollowsPerUser+1) {
		target := users[idx]
		if target.ID == u.ID {
			continue
		}
		if err := s.follows.Follow(ctx, u.ID, target.ID); err != nil {
			return err
		}
		report.Follows++
	}

	if len(posts) > 0 {
		post := posts[s.rng.Intn(len(posts))]
		if _, err := s.comments.CreateComment(ctx, service.CreateCommentInput{
			UserID:   u.ID,
			Content:  s.faker.HipsterSentence(10),
			Kind:     models.KindPost,
			TargetID: post.ID,
		}); err != nil {
			return err
		}
		report.Comments++
	}
	return nil
}

// pick returns up to k distinct indexes below n.
func (s *Seeder) pick(n, k int) []int {
	if k <= 0 || n == 0 {
		return nil
	}
	perm := s.rng.Perm(n)
	if k < n {
		perm = perm[:k]
	}
	return perm
}
