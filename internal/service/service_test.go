package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testFollowConfig() config.FollowConfig {
	return config.FollowConfig{
		FollowersSlug: "followers",
		FollowingSlug: "following",
		PostTypes: map[string]config.PostTypeConfig{
			"post":    {Enabled: true, InstantNotifications: true, DigestMode: model.DigestModeCombined},
			"podcast": {Enabled: true, InstantNotifications: false, DigestMode: model.DigestModeUserChoice},
		},
		Taxonomies:     []string{"category", "post_tag"},
		QueueBatchSize: 50,
	}
}

// fakeCache 进程内缓存假实现，记录失效调用
type fakeCache struct {
	mu          sync.Mutex
	ids         map[string][]uint64
	counts      map[string]int64
	rels        map[string]bool
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		ids:    make(map[string][]uint64),
		counts: make(map[string]int64),
		rels:   make(map[string]bool),
	}
}

func idsKey(kind, side string, id uint64, page, perPage int) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", kind, side, id, page, perPage)
}

func (f *fakeCache) GetFollowerIDs(_ context.Context, kind string, leaderID uint64, page, perPage int) ([]uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ids[idsKey(kind, "followers", leaderID, page, perPage)]
	return v, ok, nil
}

func (f *fakeCache) SetFollowerIDs(_ context.Context, kind string, leaderID uint64, page, perPage int, ids []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[idsKey(kind, "followers", leaderID, page, perPage)] = ids
	return nil
}

func (f *fakeCache) GetFollowingIDs(_ context.Context, kind string, followerID uint64, page, perPage int) ([]uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ids[idsKey(kind, "following", followerID, page, perPage)]
	return v, ok, nil
}

func (f *fakeCache) SetFollowingIDs(_ context.Context, kind string, followerID uint64, page, perPage int, ids []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[idsKey(kind, "following", followerID, page, perPage)] = ids
	return nil
}

func (f *fakeCache) GetFollowerCount(_ context.Context, kind string, leaderID uint64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.counts[fmt.Sprintf("%s:followers:%d", kind, leaderID)]
	return v, ok, nil
}

func (f *fakeCache) SetFollowerCount(_ context.Context, kind string, leaderID uint64, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[fmt.Sprintf("%s:followers:%d", kind, leaderID)] = n
	return nil
}

func (f *fakeCache) GetFollowingCount(_ context.Context, kind string, followerID uint64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.counts[fmt.Sprintf("%s:following:%d", kind, followerID)]
	return v, ok, nil
}

func (f *fakeCache) SetFollowingCount(_ context.Context, kind string, followerID uint64, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[fmt.Sprintf("%s:following:%d", kind, followerID)] = n
	return nil
}

func (f *fakeCache) GetIsFollowing(_ context.Context, kind string, leaderID, followerID uint64) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rels[fmt.Sprintf("%s:%d:%d", kind, leaderID, followerID)]
	return v, ok, nil
}

func (f *fakeCache) SetIsFollowing(_ context.Context, kind string, leaderID, followerID uint64, following bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rels[fmt.Sprintf("%s:%d:%d", kind, leaderID, followerID)] = following
	return nil
}

// InvalidatePair 模拟整 key 删除：清掉两侧对象的所有缓存项
func (f *fakeCache) InvalidatePair(ctx context.Context, kind string, leaderID, followerID uint64) error {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, fmt.Sprintf("%s:%d:%d", kind, leaderID, followerID))
	f.mu.Unlock()
	f.dropObject(kind, "followers", leaderID)
	f.dropObject(kind, "following", followerID)
	return nil
}

func (f *fakeCache) InvalidateObject(ctx context.Context, kind string, id uint64) error {
	f.dropObject(kind, "followers", id)
	f.dropObject(kind, "following", id)
	return nil
}

func (f *fakeCache) dropObject(kind, side string, id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := fmt.Sprintf("%s:%s:%d:", kind, side, id)
	for k := range f.ids {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(f.ids, k)
		}
	}
	delete(f.counts, fmt.Sprintf("%s:%s:%d", kind, side, id))
	// 关系判定挂在 follower 的 following 侧
	if side == "following" {
		for k := range f.rels {
			var leader, follower uint64
			if n, _ := fmt.Sscanf(k, kind+":%d:%d", &leader, &follower); n == 2 && follower == id {
				delete(f.rels, k)
			}
		}
	}
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeMailer 记录发送，fail=true 时模拟投递失败
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newFollowStack(t *testing.T, db *gorm.DB, cache FollowCacheStore) (*FollowService, *Dispatcher) {
	t.Helper()
	dispatcher := NewDispatcher(testLogger())
	svc := NewFollowService(
		testFollowConfig(),
		&mysql.FollowRepository{DB: db},
		&mysql.CountRepository{DB: db},
		cache,
		dispatcher,
		testLogger(),
	)
	return svc, dispatcher
}

func mustCreateUser(t *testing.T, db *gorm.DB, id uint64, name string, notify bool) *model.User {
	t.Helper()
	u := &model.User{
		ID:            id,
		Username:      name,
		Password:      "x",
		Email:         name + "@example.com",
		NotifyNewPost: notify,
		DigestEnabled: true,
		DigestFreq:    model.DigestFreqDaily,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
