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

// Mailer 邮件出口，测试替换为假实现
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// QueueStore 通知队列存储接口
type QueueStore interface {
	Enqueue(ctx context.Context, entries []model.NotificationQueueEntry) error
	ClaimBatch(ctx context.Context, batchSize int, now time.Time) ([]model.NotificationQueueEntry, error)
	MarkProcessed(ctx context.Context, id uint64, now time.Time) error
	MarkFailed(ctx context.Context, id uint64) error
	Reschedule(ctx context.Context, id uint64, retryCount int, scheduled time.Time) error
	CountEligible(ctx context.Context, now time.Time) (int64, error)
}

// NotificationStore 站内通知存储接口
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	DeleteFollowNotification(ctx context.Context, userID, itemID uint64) error
}

// NotifyUserStore 投递时取收件人信息
type NotifyUserStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// PostStore 发布流转和词条查询
type PostStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Post, error)
	Publish(ctx context.Context, id uint64) (bool, error)
	TermsOfPost(ctx context.Context, postID uint64, taxonomies []string) ([]model.Term, error)
}

// NotifyService 发布扇出与队列批处理。
// 扇出只写队列行，真正投递由 ProcessQueue 批量执行。
type NotifyService struct {
	cfg    config.FollowConfig
	queue  QueueStore
	notes  NotificationStore
	users  NotifyUserStore
	posts  PostStore
	follow *FollowService
	mailer Mailer
	log    zerolog.Logger

	kick chan struct{} // 扇出后催一次批处理，容量 1 做合并
}

func NewNotifyService(cfg config.FollowConfig, queue QueueStore, notes NotificationStore, users NotifyUserStore, posts PostStore, follow *FollowService, mailer Mailer, log zerolog.Logger) *NotifyService {
	return &NotifyService{
		cfg:    cfg,
		queue:  queue,
		notes:  notes,
		users:  users,
		posts:  posts,
		follow: follow,
		mailer: mailer,
		log:    log,
		kick:   make(chan struct{}, 1),
	}
}

// PublishPost 草稿转发布并扇出通知。
// 已发布的帖子再调一次不会重复扇出（状态流转是一次性的）。
func (s *NotifyService) PublishPost(ctx context.Context, postID uint64) (bool, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, nil
	}
	changed, err := s.posts.Publish(ctx, postID)
	if err != nil || !changed {
		return changed, err
	}
	if err := s.FanOut(ctx, post); err != nil {
		// 边已流转，扇出失败只记日志
		s.log.Error().Err(err).Uint64("post", postID).Msg("publish fan-out failed")
	}
	return true, nil
}

// FanOut 为一篇新发布的内容生成队列条目：
// 作者粉丝一份、每个词条的粉丝一份，按接收者去重，作者本人跳过。
func (s *NotifyService) FanOut(ctx context.Context, post *model.Post) error {
	if !s.cfg.IsPostTypeEnabled(post.PostType) {
		return nil
	}

	now := time.Now()
	status := model.QueueStatusPending
	if !s.cfg.InstantNotifications(post.PostType) {
		// 即时通知关闭时进 queued，由摘要路径消化
		status = model.QueueStatusQueued
	}

	seen := map[uint64]struct{}{post.AuthorID: {}}
	var entries []model.NotificationQueueEntry

	followers, err := s.follow.GetFollowers(ctx, post.AuthorID, model.AuthorFollow(post.PostType), 0, 0)
	if err != nil {
		return err
	}
	for _, uid := range followers {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		entries = append(entries, model.NotificationQueueEntry{
			UserID:           uid,
			ItemID:           post.ID,
			ItemType:         post.PostType,
			NotificationType: model.NotifyNewPostAuthor,
			Status:           status,
			Priority:         5,
			ScheduledTime:    now,
			CreatedTime:      now,
		})
	}

	terms, err := s.posts.TermsOfPost(ctx, post.ID, s.cfg.Taxonomies)
	if err != nil {
		return err
	}
	for _, term := range terms {
		termFollowers, err := s.follow.GetFollowers(ctx, term.ID, model.TermFollow(term.Taxonomy), 0, 0)
		if err != nil {
			return err
		}
		for _, uid := range termFollowers {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			entries = append(entries, model.NotificationQueueEntry{
				UserID:           uid,
				ItemID:           post.ID,
				ItemType:         post.PostType,
				NotificationType: model.NotifyNewPostTerm,
				TermID:           term.ID,
				Taxonomy:         term.Taxonomy,
				Status:           status,
				Priority:         5,
				ScheduledTime:    now,
				CreatedTime:      now,
			})
		}
	}

	if err := s.queue.Enqueue(ctx, entries); err != nil {
		return err
	}
	s.log.Info().Uint64("post", post.ID).Int("entries", len(entries)).Msg("publish fan-out queued")
	if status == model.QueueStatusPending && len(entries) > 0 {
		s.Kick()
	}
	return nil
}

// Kick 催一次批处理，队列满了就丢弃（已有待处理信号）
func (s *NotifyService) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// ProcessQueue 认领并投递一批到期条目。
// 成功 processed，失败退避重试，第 3 次失败进 failed 终态。
func (s *NotifyService) ProcessQueue(ctx context.Context) (processed, failed int, err error) {
	batch := s.cfg.QueueBatchSize
	if batch <= 0 {
		batch = 50
	}
	now := time.Now()
	claimed, err := s.queue.ClaimBatch(ctx, batch, now)
	if err != nil {
		return 0, 0, err
	}

	for i := range claimed {
		entry := &claimed[i]
		if derr := s.deliver(ctx, entry); derr != nil {
			failed++
			retry := entry.RetryCount + 1
			if retry >= model.QueueMaxRetries {
				s.log.Warn().Err(derr).Uint64("entry", entry.ID).Msg("notification failed permanently")
				if merr := s.queue.MarkFailed(ctx, entry.ID); merr != nil {
					s.log.Error().Err(merr).Uint64("entry", entry.ID).Msg("mark failed error")
				}
				continue
			}
			backoff := model.QueueRetryBackoff * time.Duration(retry)
			if merr := s.queue.Reschedule(ctx, entry.ID, retry, time.Now().Add(backoff)); merr != nil {
				s.log.Error().Err(merr).Uint64("entry", entry.ID).Msg("reschedule error")
			}
			continue
		}
		processed++
		if merr := s.queue.MarkProcessed(ctx, entry.ID, time.Now()); merr != nil {
			s.log.Error().Err(merr).Uint64("entry", entry.ID).Msg("mark processed error")
		}
	}
	return processed, failed, nil
}

// deliver 单条投递：站内通知必写，邮件看用户开关
func (s *NotifyService) deliver(ctx context.Context, entry *model.NotificationQueueEntry) error {
	user, err := s.users.FindByID(ctx, entry.UserID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", entry.UserID, err)
	}

	note := &model.Notification{
		UserID:          entry.UserID,
		ItemID:          entry.ItemID,
		SecondaryItemID: entry.TermID,
		Action:          entry.NotificationType,
		IsNew:           true,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if !user.NotifyNewPost {
		return nil
	}
	post, err := s.posts.FindByID(ctx, entry.ItemID)
	if err != nil || post == nil {
		return fmt.Errorf("load post %d: %w", entry.ItemID, err)
	}
	author, err := s.users.FindByID(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("load author %d: %w", post.AuthorID, err)
	}
	postURL := fmt.Sprintf("/posts/%d", post.ID)
	body := pkg.NewPostEmailHTML(author.Username, post.Title, postURL)
	subject := fmt.Sprintf("New post: %s", post.Title)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Run 周期批处理，Kick 信号可提前触发
func (s *NotifyService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		for {
			processed, failed, err := s.ProcessQueue(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("process notification queue failed")
				break
			}
			if processed+failed > 0 {
				s.log.Info().Int("processed", processed).Int("failed", failed).Msg("notification batch done")
			}
			// 还有到期未处理的就连着跑下一批
			n, err := s.queue.CountEligible(ctx, time.Now())
			if err != nil || n == 0 {
				break
			}
		}
	}
}

// HandleStartFollowing 用户互关的站内通知，注册在 KindSocial 的 start_following 上
func (s *NotifyService) HandleStartFollowing(ctx context.Context, ev Event) error {
	return s.notes.Create(ctx, &model.Notification{
		UserID: ev.LeaderID,
		ItemID: ev.FollowerID,
		Action: model.NotifyNewFollow,
		IsNew:  true,
	})
}

// HandleStopFollowing 取关时撤掉对应的新粉丝通知
func (s *NotifyService) HandleStopFollowing(ctx context.Context, ev Event) error {
	return s.notes.DeleteFollowNotification(ctx, ev.LeaderID, ev.FollowerID)
}

var _ QueueStore = (*mysql.QueueRepository)(nil)
var _ NotificationStore = (*mysql.NotificationRepository)(nil)
var _ NotifyUserStore = (*mysql.UserRepository)(nil)
var _ PostStore = (*mysql.PostRepository)(nil)
