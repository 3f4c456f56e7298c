package service

import (
	"context"
	"errors"
	"time"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidID  = errors.New("invalid user id")
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// FollowEdgeStore 关注边存储接口，mysql.FollowRepository 实现
type FollowEdgeStore interface {
	Create(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error)
	Delete(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error)
	Exists(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error)
	ListFollowers(ctx context.Context, leaderID uint64, followType string, page, perPage int) ([]uint64, error)
	ListFollowing(ctx context.Context, followerID uint64, followType string, page, perPage int) ([]uint64, error)
	CountFollowers(ctx context.Context, leaderID uint64, followType string) (int64, error)
	CountFollowing(ctx context.Context, followerID uint64, followType string) (int64, error)
}

// CountStore 聚合计数表接口
type CountStore interface {
	Upsert(ctx context.Context, objectID uint64, objectType string, followerCount, followingCount int64) error
	Get(ctx context.Context, objectID uint64, objectType string) (*model.FollowCount, error)
}

// FollowCacheStore 读缓存接口，redis.FollowCache 实现
type FollowCacheStore interface {
	GetFollowerIDs(ctx context.Context, kind string, leaderID uint64, page, perPage int) ([]uint64, bool, error)
	SetFollowerIDs(ctx context.Context, kind string, leaderID uint64, page, perPage int, ids []uint64) error
	GetFollowingIDs(ctx context.Context, kind string, followerID uint64, page, perPage int) ([]uint64, bool, error)
	SetFollowingIDs(ctx context.Context, kind string, followerID uint64, page, perPage int, ids []uint64) error
	GetFollowerCount(ctx context.Context, kind string, leaderID uint64) (int64, bool, error)
	SetFollowerCount(ctx context.Context, kind string, leaderID uint64, n int64) error
	GetFollowingCount(ctx context.Context, kind string, followerID uint64) (int64, bool, error)
	SetFollowingCount(ctx context.Context, kind string, followerID uint64, n int64) error
	GetIsFollowing(ctx context.Context, kind string, leaderID, followerID uint64) (bool, bool, error)
	SetIsFollowing(ctx context.Context, kind string, leaderID, followerID uint64, following bool) error
	InvalidatePair(ctx context.Context, kind string, leaderID, followerID uint64) error
	InvalidateObject(ctx context.Context, kind string, id uint64) error
}

// FollowService 通用关注服务。Author/Term 服务在它之上做类型校验和扇出。
type FollowService struct {
	cfg        config.FollowConfig
	edges      FollowEdgeStore
	counts     CountStore
	cache      FollowCacheStore
	dispatcher *Dispatcher
	log        zerolog.Logger
}

func NewFollowService(cfg config.FollowConfig, edges FollowEdgeStore, counts CountStore, cache FollowCacheStore, dispatcher *Dispatcher, log zerolog.Logger) *FollowService {
	return &FollowService{
		cfg:        cfg,
		edges:      edges,
		counts:     counts,
		cache:      cache,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Follow 建立关注边。重复关注返回 changed=false，不报错。
// 写路径顺序：边 -> 计数 -> 缓存失效 -> 事件。
func (s *FollowService) Follow(ctx context.Context, leaderID, followerID uint64, ft model.FollowType) (bool, error) {
	if leaderID == 0 || followerID == 0 {
		return false, ErrInvalidID
	}
	// 用户互关禁止自关；作者/词条关注不在这里拦
	if ft.Kind == model.KindSocial && leaderID == followerID {
		return false, ErrSelfFollow
	}

	changed, err := s.edges.Create(ctx, leaderID, followerID, ft.Tag())
	if err != nil || !changed {
		return changed, err
	}

	s.afterMutation(ctx, leaderID, followerID, ft)
	s.dispatcher.Fire(ctx, Event{
		Action:     ActionStartFollowing,
		Type:       ft,
		LeaderID:   leaderID,
		FollowerID: followerID,
		At:         time.Now(),
	})
	return true, nil
}

// Unfollow 物理删除关注边。不存在的边返回 changed=false。
func (s *FollowService) Unfollow(ctx context.Context, leaderID, followerID uint64, ft model.FollowType) (bool, error) {
	if leaderID == 0 || followerID == 0 {
		return false, ErrInvalidID
	}

	changed, err := s.edges.Delete(ctx, leaderID, followerID, ft.Tag())
	if err != nil || !changed {
		return changed, err
	}

	s.afterMutation(ctx, leaderID, followerID, ft)
	s.dispatcher.Fire(ctx, Event{
		Action:     ActionStopFollowing,
		Type:       ft,
		LeaderID:   leaderID,
		FollowerID: followerID,
		At:         time.Now(),
	})
	return true, nil
}

// afterMutation 同步刷新计数表并失效两侧缓存。
// 计数/缓存失败只记日志，对账任务兜底。
func (s *FollowService) afterMutation(ctx context.Context, leaderID, followerID uint64, ft model.FollowType) {
	if err := s.RefreshCounts(ctx, leaderID, ft); err != nil {
		s.log.Error().Err(err).Uint64("object", leaderID).Msg("refresh leader counts failed")
	}
	if err := s.RefreshCounts(ctx, followerID, ft); err != nil {
		s.log.Error().Err(err).Uint64("object", followerID).Msg("refresh follower counts failed")
	}
	if err := s.cache.InvalidatePair(ctx, ft.Object(), leaderID, followerID); err != nil {
		s.log.Warn().Err(err).Msg("invalidate follow cache failed")
	}
}

// RefreshCounts 以边表真实值重算某对象的计数行
func (s *FollowService) RefreshCounts(ctx context.Context, objectID uint64, ft model.FollowType) error {
	followers, err := s.edges.CountFollowers(ctx, objectID, ft.Tag())
	if err != nil {
		return err
	}
	following, err := s.edges.CountFollowing(ctx, objectID, ft.Tag())
	if err != nil {
		return err
	}
	return s.counts.Upsert(ctx, objectID, ft.ObjectType(), followers, following)
}

// IsFollowing 关注关系判定，缓存优先
func (s *FollowService) IsFollowing(ctx context.Context, leaderID, followerID uint64, ft model.FollowType) (bool, error) {
	if leaderID == 0 || followerID == 0 {
		return false, nil
	}
	if got, ok, err := s.cache.GetIsFollowing(ctx, ft.Object(), leaderID, followerID); err == nil && ok {
		return got, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("follow cache read failed")
	}

	exists, err := s.edges.Exists(ctx, leaderID, followerID, ft.Tag())
	if err != nil {
		return false, err
	}
	if err := s.cache.SetIsFollowing(ctx, ft.Object(), leaderID, followerID, exists); err != nil {
		s.log.Warn().Err(err).Msg("follow cache write failed")
	}
	return exists, nil
}

// GetFollowers 粉丝 ID 列表，缓存优先，perPage<=0 取全量
func (s *FollowService) GetFollowers(ctx context.Context, leaderID uint64, ft model.FollowType, page, perPage int) ([]uint64, error) {
	if got, ok, err := s.cache.GetFollowerIDs(ctx, ft.Object(), leaderID, page, perPage); err == nil && ok {
		return got, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("follow cache read failed")
	}

	ids, err := s.edges.ListFollowers(ctx, leaderID, ft.Tag(), page, perPage)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetFollowerIDs(ctx, ft.Object(), leaderID, page, perPage, ids); err != nil {
		s.log.Warn().Err(err).Msg("follow cache write failed")
	}
	return ids, nil
}

// GetFollowing 关注对象 ID 列表
func (s *FollowService) GetFollowing(ctx context.Context, followerID uint64, ft model.FollowType, page, perPage int) ([]uint64, error) {
	if got, ok, err := s.cache.GetFollowingIDs(ctx, ft.Object(), followerID, page, perPage); err == nil && ok {
		return got, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("follow cache read failed")
	}

	ids, err := s.edges.ListFollowing(ctx, followerID, ft.Tag(), page, perPage)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetFollowingIDs(ctx, ft.Object(), followerID, page, perPage, ids); err != nil {
		s.log.Warn().Err(err).Msg("follow cache write failed")
	}
	return ids, nil
}

// Counts 粉丝数/关注数对
type Counts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// GetCounts 某对象的计数。计数表优先，缺行回源边表并补写。
// 非默认类型的 followers 固定为 0，只维护 following 侧。
func (s *FollowService) GetCounts(ctx context.Context, objectID uint64, ft model.FollowType) (Counts, error) {
	row, err := s.counts.Get(ctx, objectID, ft.ObjectType())
	if err != nil {
		return Counts{}, err
	}
	if row == nil {
		if err := s.RefreshCounts(ctx, objectID, ft); err != nil {
			return Counts{}, err
		}
		if row, err = s.counts.Get(ctx, objectID, ft.ObjectType()); err != nil || row == nil {
			return Counts{}, err
		}
	}
	c := Counts{Followers: row.FollowerCount, Following: row.FollowingCount}
	if ft.Kind != model.KindSocial {
		c.Followers = 0
	}
	return c, nil
}

// GetFollowerCount 粉丝数，作者/词条页展示用。缓存 -> 计数表 -> 边表。
func (s *FollowService) GetFollowerCount(ctx context.Context, leaderID uint64, ft model.FollowType) (int64, error) {
	if got, ok, err := s.cache.GetFollowerCount(ctx, ft.Object(), leaderID); err == nil && ok {
		return got, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("follow cache read failed")
	}

	var n int64
	row, err := s.counts.Get(ctx, leaderID, ft.ObjectType())
	if err != nil {
		return 0, err
	}
	if row != nil {
		n = row.FollowerCount
	} else {
		if n, err = s.edges.CountFollowers(ctx, leaderID, ft.Tag()); err != nil {
			return 0, err
		}
	}
	if err := s.cache.SetFollowerCount(ctx, ft.Object(), leaderID, n); err != nil {
		s.log.Warn().Err(err).Msg("follow cache write failed")
	}
	return n, nil
}

// GetFollowingCount 关注数
func (s *FollowService) GetFollowingCount(ctx context.Context, followerID uint64, ft model.FollowType) (int64, error) {
	if got, ok, err := s.cache.GetFollowingCount(ctx, ft.Object(), followerID); err == nil && ok {
		return got, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("follow cache read failed")
	}

	var n int64
	row, err := s.counts.Get(ctx, followerID, ft.ObjectType())
	if err != nil {
		return 0, err
	}
	if row != nil {
		n = row.FollowingCount
	} else {
		if n, err = s.edges.CountFollowing(ctx, followerID, ft.Tag()); err != nil {
			return 0, err
		}
	}
	if err := s.cache.SetFollowingCount(ctx, ft.Object(), followerID, n); err != nil {
		s.log.Warn().Err(err).Msg("follow cache write failed")
	}
	return n, nil
}

var _ FollowEdgeStore = (*mysql.FollowRepository)(nil)
var _ CountStore = (*mysql.CountRepository)(nil)
