package service

import (
	"context"
	"errors"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"
)

var ErrBadDigestMode = errors.New("digest mode must be combined or separate")

// ContentService 内容侧的薄封装：建帖、挂词条、摘要模式偏好
type ContentService struct {
	cfg    config.FollowConfig
	posts  *mysql.PostRepository
	terms  *mysql.TermRepository
	digest *mysql.DigestRepository
}

func NewContentService(cfg config.FollowConfig, posts *mysql.PostRepository, terms *mysql.TermRepository, digest *mysql.DigestRepository) *ContentService {
	return &ContentService{cfg: cfg, posts: posts, terms: terms, digest: digest}
}

// CreatePost 新建草稿，termIDs 为可选词条关联
func (s *ContentService) CreatePost(ctx context.Context, authorID uint64, postType, title, content string, termIDs []uint64) (*model.Post, error) {
	if postType == "" {
		postType = "post"
	}
	if !s.cfg.IsPostTypeEnabled(postType) {
		return nil, ErrUnknownPostType
	}
	post := &model.Post{
		AuthorID: authorID,
		PostType: postType,
		Title:    title,
		Content:  content,
		Status:   model.PostStatusDraft,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := s.posts.AttachTerms(ctx, post.ID, termIDs); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ContentService) GetPost(ctx context.Context, id uint64) (*model.Post, error) {
	return s.posts.FindByID(ctx, id)
}

func (s *ContentService) CreateTerm(ctx context.Context, taxonomy, name, slug string) (*model.Term, error) {
	if !s.cfg.IsTaxonomyEnabled(taxonomy) {
		return nil, ErrTaxonomyDisabled
	}
	term := &model.Term{Taxonomy: taxonomy, Name: name, Slug: slug}
	if err := s.terms.Create(ctx, term); err != nil {
		return nil, err
	}
	return term, nil
}

// SetDigestPreference 用户选择某 post_type 的摘要模式，
// 只在管理端配置为 user_choice 时可改
func (s *ContentService) SetDigestPreference(ctx context.Context, userID uint64, postType, mode string) error {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return ErrUnknownPostType
	}
	if s.cfg.DigestMode(postType) != model.DigestModeUserChoice {
		return errors.New("digest mode is fixed by configuration")
	}
	if mode != model.DigestModeCombined && mode != model.DigestModeSeparate {
		return ErrBadDigestMode
	}
	return s.digest.UpsertPreference(ctx, userID, postType, mode)
}

// GetDigestPreference 用户生效的摘要模式：
// user_choice 下看用户偏好，否则取管理端配置
func (s *ContentService) GetDigestPreference(ctx context.Context, userID uint64, postType string) (string, error) {
	if !s.cfg.IsPostTypeEnabled(postType) {
		return "", ErrUnknownPostType
	}
	admin := s.cfg.DigestMode(postType)
	if admin != model.DigestModeUserChoice {
		return admin, nil
	}
	pref, err := s.digest.GetPreference(ctx, userID, postType)
	if err != nil {
		return "", err
	}
	if pref == nil {
		return model.DigestModeCombined, nil
	}
	return pref.DigestMode, nil
}
