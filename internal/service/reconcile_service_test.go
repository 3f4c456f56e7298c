package service

import (
	"context"
	"testing"

	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReconcilerStack(t *testing.T) (*FollowCountReconciler, *mysql.CountRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	counts := &mysql.CountRepository{DB: db}
	r := NewFollowCountReconciler(&mysql.FollowRepository{DB: db}, counts, newFakeCache(), 0, testLogger())
	return r, counts, db
}

func TestReconcileFixesDrift(t *testing.T) {
	r, counts, db := newReconcilerStack(t)
	ctx := context.Background()

	// 两条真实边，计数表却写着 9
	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 1, FollowerID: 2}).Error)
	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 1, FollowerID: 3}).Error)
	require.NoError(t, counts.Upsert(ctx, 1, "user", 9, 0))

	drifts, err := r.ReconcileAll(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, drifts)

	row, err := counts.Get(ctx, 1, "user")
	require.NoError(t, err)
	assert.EqualValues(t, 2, row.FollowerCount)
}

func TestReconcileDryRunWritesNothing(t *testing.T) {
	r, counts, db := newReconcilerStack(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 1, FollowerID: 2}).Error)
	require.NoError(t, counts.Upsert(ctx, 1, "user", 9, 0))

	drifts, err := r.ReconcileAll(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, drifts)
	d := drifts[0]
	assert.EqualValues(t, 9, d.HadFollowers)
	assert.EqualValues(t, 1, d.WantFollowers)

	row, err := counts.Get(ctx, 1, "user")
	require.NoError(t, err)
	assert.EqualValues(t, 9, row.FollowerCount, "dry run leaves drift in place")
}

func TestReconcileUserScoped(t *testing.T) {
	r, counts, db := newReconcilerStack(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 1, FollowerID: 2}).Error)
	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 3, FollowerID: 4, FollowType: "category"}).Error)
	require.NoError(t, counts.Upsert(ctx, 1, "user", 9, 9))
	require.NoError(t, counts.Upsert(ctx, 3, "term:category", 9, 9))

	drifts, err := r.ReconcileUser(ctx, 1, false)
	require.NoError(t, err)
	require.NotEmpty(t, drifts)

	// 只修了 1，3 仍然漂移
	row, err := counts.Get(ctx, 3, "term:category")
	require.NoError(t, err)
	assert.EqualValues(t, 9, row.FollowerCount)
}

func TestReconcileMissingCountRow(t *testing.T) {
	r, counts, db := newReconcilerStack(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.FollowEdge{LeaderID: 5, FollowerID: 6}).Error)

	_, err := r.ReconcileAll(ctx, false)
	require.NoError(t, err)

	row, err := counts.Get(ctx, 5, "user")
	require.NoError(t, err)
	require.NotNil(t, row, "missing rows are created")
	assert.EqualValues(t, 1, row.FollowerCount)
}
