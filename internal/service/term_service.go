package service

import (
	"context"
	"errors"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"
)

var (
	ErrTaxonomyDisabled = errors.New("taxonomy not enabled")
	ErrTermNotFound     = errors.New("term not found")
)

// TermStore 词条存在性校验用
type TermStore interface {
	Find(ctx context.Context, termID uint64, taxonomy string) (*model.Term, error)
}

// TermFollowService 关注分类词条，leader 位放 term ID
type TermFollowService struct {
	cfg    config.FollowConfig
	follow *FollowService
	terms  TermStore
}

func NewTermFollowService(cfg config.FollowConfig, follow *FollowService, terms TermStore) *TermFollowService {
	return &TermFollowService{cfg: cfg, follow: follow, terms: terms}
}

func (s *TermFollowService) check(ctx context.Context, termID uint64, taxonomy string) error {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return ErrTaxonomyDisabled
	}
	t, err := s.terms.Find(ctx, termID, taxonomy)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTermNotFound
	}
	return nil
}

// FollowTerm 关注词条，重复关注返回 changed=false
func (s *TermFollowService) FollowTerm(ctx context.Context, termID, followerID uint64, taxonomy string) (bool, error) {
	if err := s.check(ctx, termID, taxonomy); err != nil {
		return false, err
	}
	return s.follow.Follow(ctx, termID, followerID, model.TermFollow(taxonomy))
}

// UnfollowTerm 取关词条。词条已删除也放行，留给用户清理残边。
func (s *TermFollowService) UnfollowTerm(ctx context.Context, termID, followerID uint64, taxonomy string) (bool, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return false, ErrTaxonomyDisabled
	}
	return s.follow.Unfollow(ctx, termID, followerID, model.TermFollow(taxonomy))
}

func (s *TermFollowService) IsFollowingTerm(ctx context.Context, termID, followerID uint64, taxonomy string) (bool, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return false, ErrTaxonomyDisabled
	}
	return s.follow.IsFollowing(ctx, termID, followerID, model.TermFollow(taxonomy))
}

// GetFollowedTerms 某粉丝在某 taxonomy 下关注的词条
func (s *TermFollowService) GetFollowedTerms(ctx context.Context, followerID uint64, taxonomy string, page, perPage int) ([]uint64, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return nil, ErrTaxonomyDisabled
	}
	return s.follow.GetFollowing(ctx, followerID, model.TermFollow(taxonomy), page, perPage)
}

// GetTermFollowers 某词条的粉丝
func (s *TermFollowService) GetTermFollowers(ctx context.Context, termID uint64, taxonomy string, page, perPage int) ([]uint64, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return nil, ErrTaxonomyDisabled
	}
	return s.follow.GetFollowers(ctx, termID, model.TermFollow(taxonomy), page, perPage)
}

func (s *TermFollowService) GetTermFollowerCount(ctx context.Context, termID uint64, taxonomy string) (int64, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return 0, ErrTaxonomyDisabled
	}
	return s.follow.GetFollowerCount(ctx, termID, model.TermFollow(taxonomy))
}

var _ TermStore = (*mysql.TermRepository)(nil)
