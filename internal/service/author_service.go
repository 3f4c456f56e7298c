package service

import (
	"context"
	"errors"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"
)

var (
	ErrAuthorNotFound  = errors.New("author not found")
	ErrUnknownPostType = errors.New("post type not enabled")
)

// UserStore 作者存在性校验用
type UserStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// AuthorFollowService 按 post_type 关注作者。一个作者可被同一粉丝
// 在多个 post_type 下分别关注，每个 (author, follower, post_type) 一条边。
type AuthorFollowService struct {
	cfg    config.FollowConfig
	follow *FollowService
	users  UserStore
}

func NewAuthorFollowService(cfg config.FollowConfig, follow *FollowService, users UserStore) *AuthorFollowService {
	return &AuthorFollowService{cfg: cfg, follow: follow, users: users}
}

// resolvePostTypes 请求的 post_type 与启用集合求交，空请求取全部启用项
func (s *AuthorFollowService) resolvePostTypes(postTypes []string) ([]string, error) {
	enabled := s.cfg.EnabledPostTypes()
	if len(postTypes) == 0 {
		return enabled, nil
	}
	var out []string
	for _, pt := range postTypes {
		if s.cfg.IsPostTypeEnabled(pt) {
			out = append(out, pt)
		}
	}
	if len(out) == 0 {
		return nil, ErrUnknownPostType
	}
	return out, nil
}

// FollowAuthor 关注作者的一个或多个 post_type。
// changed=true 表示至少新建了一条边；全部已存在时 false。
func (s *AuthorFollowService) FollowAuthor(ctx context.Context, authorID, followerID uint64, postTypes []string) (bool, error) {
	ok, err := s.users.Exists(ctx, authorID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrAuthorNotFound
	}
	pts, err := s.resolvePostTypes(postTypes)
	if err != nil {
		return false, err
	}

	var any bool
	for _, pt := range pts {
		changed, err := s.follow.Follow(ctx, authorID, followerID, model.AuthorFollow(pt))
		if err != nil {
			return any, err
		}
		any = any || changed
	}
	return any, nil
}

// UnfollowAuthor 取关作者的一个或多个 post_type
func (s *AuthorFollowService) UnfollowAuthor(ctx context.Context, authorID, followerID uint64, postTypes []string) (bool, error) {
	pts, err := s.resolvePostTypes(postTypes)
	if err != nil {
		return false, err
	}

	var any bool
	for _, pt := range pts {
		changed, err := s.follow.Unfollow(ctx, authorID, followerID, model.AuthorFollow(pt))
		if err != nil {
			return any, err
		}
		any = any || changed
	}
	return any, nil
}

func (s *AuthorFollowService) IsFollowingAuthor(ctx context.Context, authorID, followerID uint64, postType string) (bool, error) {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return false, ErrUnknownPostType
	}
	return s.follow.IsFollowing(ctx, authorID, followerID, model.AuthorFollow(postType))
}

// GetFollowedAuthors 某粉丝在某 post_type 下关注的作者
func (s *AuthorFollowService) GetFollowedAuthors(ctx context.Context, followerID uint64, postType string, page, perPage int) ([]uint64, error) {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return nil, ErrUnknownPostType
	}
	return s.follow.GetFollowing(ctx, followerID, model.AuthorFollow(postType), page, perPage)
}

// GetAuthorFollowers 某作者在某 post_type 下的粉丝
func (s *AuthorFollowService) GetAuthorFollowers(ctx context.Context, authorID uint64, postType string, page, perPage int) ([]uint64, error) {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return nil, ErrUnknownPostType
	}
	return s.follow.GetFollowers(ctx, authorID, model.AuthorFollow(postType), page, perPage)
}

func (s *AuthorFollowService) GetAuthorFollowerCount(ctx context.Context, authorID uint64, postType string) (int64, error) {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return 0, ErrUnknownPostType
	}
	return s.follow.GetFollowerCount(ctx, authorID, model.AuthorFollow(postType))
}

var _ UserStore = (*mysql.UserRepository)(nil)
