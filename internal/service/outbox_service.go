package service

import (
	"context"
	"time"

	"Follow_Community/internal/model"
	"Follow_Community/internal/pkg"
	"Follow_Community/internal/repository/mysql"

	"github.com/rs/zerolog"
)

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer 把事务内落库的关注事件异步转投出去
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
	log       zerolog.Logger
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, interval time.Duration, sender Sender, log zerolog.Logger) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		interval:  interval,
		sender:    sender,
		log:       log,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// 从数据库读取待发事件，逐条交给 sender，失败标记重试
func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("outbox query err")
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// KafkaSender 事件投到 Kafka，按 leader 分区保序
func KafkaSender(producer *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return producer.Send(ctx, pkg.MakeKeyFromID(ob.Leader), []byte(ob.Payload))
	}
}

// LogSender 本地开发用 sender，只打印不投递
func LogSender(log zerolog.Logger) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		log.Info().
			Str("type", ob.EventType).
			Uint64("follower", ob.Follower).
			Uint64("leader", ob.Leader).
			Str("follow_type", ob.FollowType).
			Msg("outbox send")
		return nil
	}
}
