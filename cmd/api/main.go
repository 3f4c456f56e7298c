package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Follow_Community/internal/config"
	"Follow_Community/internal/handler"
	"Follow_Community/internal/model"
	"Follow_Community/internal/pkg"
	"Follow_Community/internal/repository/mysql"
	"Follow_Community/internal/repository/redis"
	"Follow_Community/internal/router"
	"Follow_Community/internal/service"
)

// smtpMailer 生产 Mailer，走 gomail
type smtpMailer struct {
	cfg pkg.SMTPConfig
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	return pkg.SendEmail(m.cfg, to, subject, htmlBody)
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	log := pkg.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	db, err := mysql.InitDB(cfg.MySQL.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql init failed")
	}
	// 自动建表（开发阶段 OK）
	if err := mysql.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	// 连接redis
	rdb, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis init failed")
	}

	// 仓库层，构造一次到处引用
	followRepo := &mysql.FollowRepository{DB: db}
	countRepo := &mysql.CountRepository{DB: db}
	outboxRepo := &mysql.OutboxRepository{DB: db}
	queueRepo := &mysql.QueueRepository{DB: db}
	noteRepo := &mysql.NotificationRepository{DB: db}
	digestRepo := &mysql.DigestRepository{DB: db}
	userRepo := &mysql.UserRepository{DB: db}
	postRepo := &mysql.PostRepository{DB: db}
	termRepo := &mysql.TermRepository{DB: db}
	rUser := &redis.UserRepository{RDB: rdb}
	cache := redis.NewFollowCache(rdb, cfg.Follow.CacheTTL)

	mailer := &smtpMailer{cfg: pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}}

	// 服务层
	dispatcher := service.NewDispatcher(log)
	followSvc := service.NewFollowService(cfg.Follow, followRepo, countRepo, cache, dispatcher, log)
	authorSvc := service.NewAuthorFollowService(cfg.Follow, followSvc, userRepo)
	termSvc := service.NewTermFollowService(cfg.Follow, followSvc, termRepo)
	notifySvc := service.NewNotifyService(cfg.Follow, queueRepo, noteRepo, userRepo, postRepo, followSvc, mailer, log)
	digestSvc := service.NewDigestService(cfg.Follow, digestRepo, userRepo, mailer, log)
	contentSvc := service.NewContentService(cfg.Follow, postRepo, termRepo, digestRepo)
	userSvc := service.NewUserService(userRepo, rUser)

	// 关注事件监听：站内通知 + 摘要
	dispatcher.RegisterKind(service.ActionStartFollowing, model.KindSocial, notifySvc.HandleStartFollowing)
	dispatcher.RegisterKind(service.ActionStopFollowing, model.KindSocial, notifySvc.HandleStopFollowing)
	dispatcher.RegisterKind(service.ActionStartFollowing, model.KindSocial, digestSvc.HandleStartFollowing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// outbox 转投：能连上 kafka 就投 kafka，否则只打日志
	sender := service.LogSender(log)
	producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	if err != nil {
		log.Warn().Err(err).Msg("kafka unavailable, outbox falls back to log sender")
	} else {
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	relayer := service.NewOutboxRelayer(outboxRepo, cfg.Follow.OutboxInterval, sender, log)
	go relayer.Run(ctx)

	reconciler := service.NewFollowCountReconciler(followRepo, countRepo, cache, cfg.Follow.ReconcileInterval, log)
	go reconciler.ReconcilerRun(ctx)

	go notifySvc.Run(ctx, cfg.Follow.DrainInterval)
	go digestSvc.Run(ctx)

	// Gin
	r := router.InitRouter(router.Handlers{
		User:   handler.NewUserHandler(userSvc),
		Follow: handler.NewFollowHandler(followSvc),
		Author: handler.NewAuthorHandler(authorSvc),
		Term:   handler.NewTermHandler(termSvc),
		Post:   handler.NewPostHandler(contentSvc, notifySvc),
	}, rUser)

	log.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
