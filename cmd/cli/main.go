package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"Follow_Community/internal/config"
	"Follow_Community/internal/model"
	"Follow_Community/internal/pkg"
	"Follow_Community/internal/repository/mysql"
	"Follow_Community/internal/repository/redis"
	"Follow_Community/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// noopCache CLI 在 redis 不可用时的降级缓存，读全 miss 写全丢
type noopCache struct{}

func (noopCache) GetFollowerIDs(context.Context, string, uint64, int, int) ([]uint64, bool, error) {
	return nil, false, nil
}
func (noopCache) SetFollowerIDs(context.Context, string, uint64, int, int, []uint64) error {
	return nil
}
func (noopCache) GetFollowingIDs(context.Context, string, uint64, int, int) ([]uint64, bool, error) {
	return nil, false, nil
}
func (noopCache) SetFollowingIDs(context.Context, string, uint64, int, int, []uint64) error {
	return nil
}
func (noopCache) GetFollowerCount(context.Context, string, uint64) (int64, bool, error) {
	return 0, false, nil
}
func (noopCache) SetFollowerCount(context.Context, string, uint64, int64) error { return nil }
func (noopCache) GetFollowingCount(context.Context, string, uint64) (int64, bool, error) {
	return 0, false, nil
}
func (noopCache) SetFollowingCount(context.Context, string, uint64, int64) error { return nil }
func (noopCache) GetIsFollowing(context.Context, string, uint64, uint64) (bool, bool, error) {
	return false, false, nil
}
func (noopCache) SetIsFollowing(context.Context, string, uint64, uint64, bool) error { return nil }
func (noopCache) InvalidatePair(context.Context, string, uint64, uint64) error       { return nil }
func (noopCache) InvalidateObject(context.Context, string, uint64) error             { return nil }

type smtpMailer struct {
	cfg pkg.SMTPConfig
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	return pkg.SendEmail(m.cfg, to, subject, htmlBody)
}

// app CLI 的依赖集合，每次执行构造一次
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	followRepo *mysql.FollowRepository
	countRepo  *mysql.CountRepository
	statsRepo  *mysql.StatsRepository
	userRepo   *mysql.UserRepository
	digestRepo *mysql.DigestRepository
	followSvc  *service.FollowService
	reconciler *service.FollowCountReconciler
	digestSvc  *service.DigestService
	cache      service.FollowCacheStore
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := pkg.NewLogger(cfg.Log.Level, true)

	db, err := mysql.InitDB(cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	if err := mysql.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var cache service.FollowCacheStore = noopCache{}
	if rdb, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err == nil {
		cache = redis.NewFollowCache(rdb, cfg.Follow.CacheTTL)
	} else {
		log.Warn().Err(err).Msg("redis unavailable, cache disabled")
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		followRepo: &mysql.FollowRepository{DB: db},
		countRepo:  &mysql.CountRepository{DB: db},
		statsRepo:  &mysql.StatsRepository{DB: db},
		userRepo:   &mysql.UserRepository{DB: db},
		digestRepo: &mysql.DigestRepository{DB: db},
		cache:      cache,
	}
	dispatcher := service.NewDispatcher(log)
	a.followSvc = service.NewFollowService(cfg.Follow, a.followRepo, a.countRepo, cache, dispatcher, log)
	a.reconciler = service.NewFollowCountReconciler(a.followRepo, a.countRepo, cache, cfg.Follow.ReconcileInterval, log)
	mailer := &smtpMailer{cfg: pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}}
	a.digestSvc = service.NewDigestService(cfg.Follow, a.digestRepo, a.userRepo, mailer, log)
	return a, nil
}

func parseType(tag string) (model.FollowType, error) {
	return model.ParseFollowType(tag)
}

func main() {
	var (
		configPath string
		typeTag    string
	)

	root := &cobra.Command{
		Use:           "followctl",
		Short:         "Manage the follow graph from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config directory")
	root.PersistentFlags().StringVar(&typeTag, "type", "", "follow type tag (empty = user follow, authors:<post_type>, <taxonomy>)")

	var leaderID, followerID uint64

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Create a follow relationship",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ft, err := parseType(typeTag)
			if err != nil {
				return err
			}
			changed, err := a.followSvc.Follow(cmd.Context(), leaderID, followerID, ft)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("already following")
				return nil
			}
			fmt.Printf("%d now follows %d (%s)\n", followerID, leaderID, ft)
			return nil
		},
	}
	startCmd.Flags().Uint64Var(&leaderID, "leader", 0, "user being followed")
	startCmd.Flags().Uint64Var(&followerID, "follower", 0, "user doing the following")
	startCmd.MarkFlagRequired("leader")
	startCmd.MarkFlagRequired("follower")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Remove a follow relationship",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ft, err := parseType(typeTag)
			if err != nil {
				return err
			}
			changed, err := a.followSvc.Unfollow(cmd.Context(), leaderID, followerID, ft)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("not following")
				return nil
			}
			fmt.Printf("%d no longer follows %d (%s)\n", followerID, leaderID, ft)
			return nil
		},
	}
	stopCmd.Flags().Uint64Var(&leaderID, "leader", 0, "user being followed")
	stopCmd.Flags().Uint64Var(&followerID, "follower", 0, "user doing the following")
	stopCmd.MarkFlagRequired("leader")
	stopCmd.MarkFlagRequired("follower")

	var userID uint64

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Show follower/following counts for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ft, err := parseType(typeTag)
			if err != nil {
				return err
			}
			counts, err := a.followSvc.GetCounts(cmd.Context(), userID, ft)
			if err != nil {
				return err
			}
			fmt.Printf("followers: %d\nfollowing: %d\n", counts.Followers, counts.Following)
			return nil
		},
	}
	countCmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	countCmd.MarkFlagRequired("user")

	var (
		side    string
		format  string
		page    int
		perPage int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List followers or following of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ft, err := parseType(typeTag)
			if err != nil {
				return err
			}
			var ids []uint64
			if side == "following" {
				ids, err = a.followSvc.GetFollowing(cmd.Context(), userID, ft, page, perPage)
			} else {
				ids, err = a.followSvc.GetFollowers(cmd.Context(), userID, ft, page, perPage)
			}
			if err != nil {
				return err
			}
			return printIDs(cmd, a, ids, format)
		},
	}
	listCmd.Flags().Uint64Var(&userID, "user", 0, "user id")
	listCmd.Flags().StringVar(&side, "side", "followers", "followers or following")
	listCmd.Flags().StringVar(&format, "format", "table", "table, csv, json, ids or count")
	listCmd.Flags().IntVar(&page, "page", 0, "page number")
	listCmd.Flags().IntVar(&perPage, "per-page", 0, "page size, 0 = all")
	listCmd.MarkFlagRequired("user")

	var (
		syncUser uint64
		dryRun   bool
	)
	syncCmd := &cobra.Command{
		Use:   "sync-counts",
		Short: "Recompute aggregate counts from the follow table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			var drifts []service.Drift
			if syncUser != 0 {
				drifts, err = a.reconciler.ReconcileUser(cmd.Context(), syncUser, dryRun)
			} else {
				drifts, err = a.reconciler.ReconcileAll(cmd.Context(), dryRun)
			}
			if err != nil {
				return err
			}
			if len(drifts) == 0 {
				fmt.Println("all counts in sync")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "OBJECT\tTYPE\tHAD\tWANT")
			for _, d := range drifts {
				fmt.Fprintf(w, "%d\t%s\t%d/%d\t%d/%d\n",
					d.ObjectID, d.ObjectType,
					d.HadFollowers, d.HadFollowing,
					d.WantFollowers, d.WantFollowing)
			}
			w.Flush()
			if dryRun {
				fmt.Printf("%d object(s) out of sync (dry run, nothing written)\n", len(drifts))
			} else {
				fmt.Printf("%d object(s) fixed\n", len(drifts))
			}
			return nil
		},
	}
	syncCmd.Flags().Uint64Var(&syncUser, "user", 0, "only this object id")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without writing")

	var yes bool
	deleteAllCmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every follow relationship and aggregate count",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete everything without --yes")
			}
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			tags, err := a.followRepo.DistinctFollowTypes(cmd.Context())
			if err != nil {
				return err
			}
			// 先记下所有对象再删，缓存逐个失效
			type pair struct {
				object string
				id     uint64
			}
			var objects []pair
			for _, tag := range tags {
				ft, perr := model.ParseFollowType(tag)
				if perr != nil {
					continue
				}
				ids, lerr := a.followRepo.DistinctObjectIDs(cmd.Context(), tag)
				if lerr != nil {
					return lerr
				}
				for _, id := range ids {
					objects = append(objects, pair{object: ft.Object(), id: id})
				}
			}
			n, err := a.followRepo.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.countRepo.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			for _, o := range objects {
				_ = a.cache.InvalidateObject(cmd.Context(), o.object, o.id)
			}
			fmt.Printf("deleted %d follow relationship(s)\n", n)
			return nil
		},
	}
	deleteAllCmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show follow graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			s, err := a.statsRepo.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "total relationships\t%d\n", s.TotalEdges)
			fmt.Fprintf(w, "users with followers\t%d\n", s.UsersWithFollowers)
			fmt.Fprintf(w, "users following someone\t%d\n", s.UsersFollowing)
			fmt.Fprintf(w, "most followed\t%d (%d followers)\n", s.TopLeaderID, s.TopLeaderCount)
			fmt.Fprintf(w, "most active follower\t%d (%d following)\n", s.TopFollowerID, s.TopFollowerCount)
			return w.Flush()
		},
	}

	var digestUser uint64
	digestCmd := &cobra.Command{
		Use:   "send-digests",
		Short: "Send queued new-follower digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			now := time.Now()
			if digestUser != 0 {
				ok, err := a.digestSvc.SendDigest(cmd.Context(), digestUser, now)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("nothing to send (empty queue or interval not reached)")
					return nil
				}
				fmt.Println("digest sent")
				return nil
			}
			sent, err := a.digestSvc.ProcessAll(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Printf("%d digest(s) sent\n", sent)
			return nil
		},
	}
	digestCmd.Flags().Uint64Var(&digestUser, "user", 0, "only this user")

	root.AddCommand(startCmd, stopCmd, countCmd, listCmd, syncCmd, deleteAllCmd, statsCmd, digestCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// printIDs 按 --format 输出 ID 列表
func printIDs(cmd *cobra.Command, a *app, ids []uint64, format string) error {
	switch format {
	case "count":
		fmt.Println(len(ids))
		return nil
	case "ids":
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ids)
	case "csv":
		w := csv.NewWriter(os.Stdout)
		if err := w.Write([]string{"user_id", "username"}); err != nil {
			return err
		}
		users, err := a.userRepo.FindByIDs(cmd.Context(), ids)
		if err != nil {
			return err
		}
		names := make(map[uint64]string, len(users))
		for _, u := range users {
			names[u.ID] = u.Username
		}
		for _, id := range ids {
			if err := w.Write([]string{strconv.FormatUint(id, 10), names[id]}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	default: // table
		users, err := a.userRepo.FindByIDs(cmd.Context(), ids)
		if err != nil {
			return err
		}
		names := make(map[uint64]string, len(users))
		for _, u := range users {
			names[u.ID] = u.Username
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME")
		for _, id := range ids {
			fmt.Fprintf(w, "%d\t%s\n", id, names[id])
		}
		return w.Flush()
	}
}
