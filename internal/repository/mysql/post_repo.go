package mysql

import (
	"context"
	"errors"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var p model.Post
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Publish 草稿转发布。只对当前非 published 的行生效，
// changed=false 表示已经是发布态（或不存在），调用方据此决定是否扇出。
func (r *PostRepository) Publish(ctx context.Context, id uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id=? AND status <> ?", id, model.PostStatusPublished).
		Update("status", model.PostStatusPublished)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AttachTerms 关联帖子与词条
func (r *PostRepository) AttachTerms(ctx context.Context, postID uint64, termIDs []uint64) error {
	if len(termIDs) == 0 {
		return nil
	}
	rows := make([]model.PostTerm, 0, len(termIDs))
	for _, tid := range termIDs {
		rows = append(rows, model.PostTerm{PostID: postID, TermID: tid})
	}
	return r.DB.WithContext(ctx).Create(&rows).Error
}

// TermsOfPost 帖子挂的词条，taxonomies 非空时按启用的 taxonomy 过滤
func (r *PostRepository) TermsOfPost(ctx context.Context, postID uint64, taxonomies []string) ([]model.Term, error) {
	q := r.DB.WithContext(ctx).Model(&model.Term{}).
		Joins("JOIN post_terms ON post_terms.term_id = terms.id").
		Where("post_terms.post_id=?", postID)
	if len(taxonomies) > 0 {
		q = q.Where("terms.taxonomy IN ?", taxonomies)
	}
	var terms []model.Term
	err := q.Find(&terms).Error
	return terms, err
}

type TermRepository struct {
	DB *gorm.DB
}

func (r *TermRepository) Create(ctx context.Context, t *model.Term) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// Find 按 ID 加 taxonomy 双重校验取词条，不匹配返回 (nil, nil)
func (r *TermRepository) Find(ctx context.Context, termID uint64, taxonomy string) (*model.Term, error) {
	var t model.Term
	err := r.DB.WithContext(ctx).
		Where("id=? AND taxonomy=?", termID, taxonomy).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
