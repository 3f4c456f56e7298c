package service

import (
	"context"
	"fmt"
	"time"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/pkg"
	"Follow_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
)

// DigestStore 摘要队列存储接口
type DigestStore interface {
	QueueFollower(ctx context.Context, userID, followerID uint64) error
	QueueFor(ctx context.Context, userID uint64) ([]model.DigestQueueEntry, error)
	UsersWithQueued(ctx context.Context) ([]uint64, error)
	Clear(ctx context.Context, userID uint64) error
}

// DigestUserStore 摘要发送所需的用户操作
type DigestUserStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]model.User, error)
	StampDigestSent(ctx context.Context, id uint64, t time.Time) error
}

// 摘要邮件里最多点名的粉丝数，超出部分只报总数
const digestNameLimit = 10

// DigestService 新粉丝摘要。关注事件进队列攒批，
// 周期任务按用户频率（daily/weekly）严格间隔发送。
type DigestService struct {
	cfg    config.FollowConfig
	store  DigestStore
	users  DigestUserStore
	mailer Mailer
	log    zerolog.Logger
}

func NewDigestService(cfg config.FollowConfig, store DigestStore, users DigestUserStore, mailer Mailer, log zerolog.Logger) *DigestService {
	return &DigestService{cfg: cfg, store: store, users: users, mailer: mailer, log: log}
}

// HandleStartFollowing 社交关注监听器：开了摘要的用户攒新粉丝
func (s *DigestService) HandleStartFollowing(ctx context.Context, ev Event) error {
	user, err := s.users.FindByID(ctx, ev.LeaderID)
	if err != nil {
		return err
	}
	if !user.DigestEnabled {
		return nil
	}
	return s.store.QueueFollower(ctx, ev.LeaderID, ev.FollowerID)
}

// interval 摘要频率对应的最短发送间隔
func digestInterval(freq string) time.Duration {
	if freq == model.DigestFreqDaily {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// SendDigest 给一个用户发摘要。
// 间隔未满或队列为空时跳过（sent=false, err=nil）。
// 发送成功后清队列并记录发送时间，失败保留队列下轮重发。
func (s *DigestService) SendDigest(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.DigestEnabled {
		return false, nil
	}
	if user.DigestLastSent != nil && now.Sub(*user.DigestLastSent) < digestInterval(user.DigestFreq) {
		return false, nil
	}

	entries, err := s.store.QueueFor(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}

	followerIDs := make([]uint64, 0, len(entries))
	for _, e := range entries {
		followerIDs = append(followerIDs, e.FollowerID)
	}
	nameIDs := followerIDs
	if len(nameIDs) > digestNameLimit {
		nameIDs = nameIDs[:digestNameLimit]
	}
	followers, err := s.users.FindByIDs(ctx, nameIDs)
	if err != nil {
		return false, err
	}
	names := make([]string, 0, len(followers))
	for _, f := range followers {
		names = append(names, f.Username)
	}

	period := "this week"
	if user.DigestFreq == model.DigestFreqDaily {
		period = "today"
	}
	followersURL := fmt.Sprintf("/users/%d/%s", userID, s.cfg.FollowersSlug)
	body := pkg.DigestEmailHTML(period, len(followerIDs), names, followersURL)
	subject := fmt.Sprintf("You have %d new follower(s)", len(followerIDs))
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		return false, err
	}

	if err := s.store.Clear(ctx, userID); err != nil {
		s.log.Error().Err(err).Uint64("user", userID).Msg("clear digest queue failed")
	}
	if err := s.users.StampDigestSent(ctx, userID, now); err != nil {
		s.log.Error().Err(err).Uint64("user", userID).Msg("stamp digest sent failed")
	}
	return true, nil
}

// ProcessAll 给所有攒了条目的用户跑一轮摘要
func (s *DigestService) ProcessAll(ctx context.Context, now time.Time) (sent int, err error) {
	ids, err := s.store.UsersWithQueued(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		ok, err := s.SendDigest(ctx, id, now)
		if err != nil {
			s.log.Error().Err(err).Uint64("user", id).Msg("send digest failed")
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// Run 每小时检查一轮，间隔判定在 SendDigest 里
func (s *DigestService) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sent, err := s.ProcessAll(ctx, time.Now()); err != nil {
				s.log.Error().Err(err).Msg("digest sweep failed")
			} else if sent > 0 {
				s.log.Info().Int("sent", sent).Msg("digest sweep done")
			}
		}
	}
}

var _ DigestStore = (*mysql.DigestRepository)(nil)
var _ DigestUserStore = (*mysql.UserRepository)(nil)
