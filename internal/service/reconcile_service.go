package service

import (
	"context"
	"time"

	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
)

// FollowCountReconciler 计数对账。同步计数写失败或漂移时，
// 周期任务按边表真实值修正计数表。
type FollowCountReconciler struct {
	edges    *mysql.FollowRepository
	counts   *mysql.CountRepository
	cache    FollowCacheStore
	interval time.Duration
	log      zerolog.Logger
}

func NewFollowCountReconciler(edges *mysql.FollowRepository, counts *mysql.CountRepository, cache FollowCacheStore, interval time.Duration, log zerolog.Logger) *FollowCountReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FollowCountReconciler{
		edges:    edges,
		counts:   counts,
		cache:    cache,
		interval: interval,
		log:      log,
	}
}

// ReconcilerRun 对账定时任务启动器
func (r *FollowCountReconciler) ReconcilerRun(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.ReconcileAll(ctx, false); err != nil {
				r.log.Error().Err(err).Msg("reconcile err")
			}
		}
	}
}

// Drift 一次对账发现的偏差
type Drift struct {
	ObjectID      uint64 `json:"object_id"`
	ObjectType    string `json:"object_type"`
	WantFollowers int64  `json:"want_followers"`
	WantFollowing int64  `json:"want_following"`
	HadFollowers  int64  `json:"had_followers"`
	HadFollowing  int64  `json:"had_following"`
}

// ReconcileAll 遍历库里出现过的 follow_type 与对象，
// 边表真实值和计数表比对，不一致就修正。dryRun 只报告不写。
func (r *FollowCountReconciler) ReconcileAll(ctx context.Context, dryRun bool) ([]Drift, error) {
	tags, err := r.edges.DistinctFollowTypes(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, tag := range tags {
		ft, err := model.ParseFollowType(tag)
		if err != nil {
			r.log.Warn().Str("tag", tag).Msg("skip unknown follow type")
			continue
		}
		ids, err := r.edges.DistinctObjectIDs(ctx, tag)
		if err != nil {
			return drifts, err
		}
		for _, id := range ids {
			d, err := r.reconcileOne(ctx, id, ft, dryRun)
			if err != nil {
				r.log.Error().Err(err).Uint64("object", id).Msg("reconcile object err")
				continue
			}
			if d != nil {
				drifts = append(drifts, *d)
			}
		}
	}
	return drifts, nil
}

// ReconcileUser 只对账一个对象在所有类型下的计数，CLI sync-counts --user 用
func (r *FollowCountReconciler) ReconcileUser(ctx context.Context, objectID uint64, dryRun bool) ([]Drift, error) {
	tags, err := r.edges.DistinctFollowTypes(ctx)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, tag := range tags {
		ft, err := model.ParseFollowType(tag)
		if err != nil {
			continue
		}
		d, err := r.reconcileOne(ctx, objectID, ft, dryRun)
		if err != nil {
			return drifts, err
		}
		if d != nil {
			drifts = append(drifts, *d)
		}
	}
	return drifts, nil
}

func (r *FollowCountReconciler) reconcileOne(ctx context.Context, objectID uint64, ft model.FollowType, dryRun bool) (*Drift, error) {
	realFollowers, err := r.edges.CountFollowers(ctx, objectID, ft.Tag())
	if err != nil {
		return nil, err
	}
	realFollowing, err := r.edges.CountFollowing(ctx, objectID, ft.Tag())
	if err != nil {
		return nil, err
	}

	row, err := r.counts.Get(ctx, objectID, ft.ObjectType())
	if err != nil {
		return nil, err
	}
	var hadFollowers, hadFollowing int64
	if row != nil {
		hadFollowers, hadFollowing = row.FollowerCount, row.FollowingCount
	}
	if row != nil && hadFollowers == realFollowers && hadFollowing == realFollowing {
		return nil, nil
	}

	d := &Drift{
		ObjectID:      objectID,
		ObjectType:    ft.ObjectType(),
		WantFollowers: realFollowers,
		WantFollowing: realFollowing,
		HadFollowers:  hadFollowers,
		HadFollowing:  hadFollowing,
	}
	if dryRun {
		return d, nil
	}
	if err := r.counts.Upsert(ctx, objectID, ft.ObjectType(), realFollowers, realFollowing); err != nil {
		return nil, err
	}
	if err := r.cache.InvalidateObject(ctx, ft.Object(), objectID); err != nil {
		r.log.Warn().Err(err).Msg("invalidate cache after reconcile failed")
	}
	return d, nil
}
