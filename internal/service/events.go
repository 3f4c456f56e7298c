package service

import (
	"context"
	"sync"
	"time"

	"Follow_Community/internal/model"

	"github.com/rs/zerolog"
)

type Action string

const (
	ActionStartFollowing Action = "start_following"
	ActionStopFollowing  Action = "stop_following"
)

// Event 一次关注关系变更，携带类型化的 FollowType，监听方按 Kind 分流
type Event struct {
	Action     Action
	Type       model.FollowType
	LeaderID   uint64
	FollowerID uint64
	At         time.Time
}

type Listener func(ctx context.Context, ev Event) error

type registration struct {
	kind *model.FollowKind // nil 表示所有 Kind 都投递
	fn   Listener
}

// Dispatcher 同步事件分发。监听器错误只记日志，不回传给触发方：
// 边已落库，通知侧的失败不应让关注操作报错。
type Dispatcher struct {
	log zerolog.Logger

	mu        sync.RWMutex
	listeners map[Action][]registration
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:       log,
		listeners: make(map[Action][]registration),
	}
}

// Register 注册监听所有 Kind 的监听器
func (d *Dispatcher) Register(action Action, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[action] = append(d.listeners[action], registration{fn: fn})
}

// RegisterKind 只监听某一 Kind
func (d *Dispatcher) RegisterKind(action Action, kind model.FollowKind, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := kind
	d.listeners[action] = append(d.listeners[action], registration{kind: &k, fn: fn})
}

// Fire 同步执行匹配的监听器
func (d *Dispatcher) Fire(ctx context.Context, ev Event) {
	d.mu.RLock()
	regs := d.listeners[ev.Action]
	d.mu.RUnlock()

	for _, reg := range regs {
		if reg.kind != nil && *reg.kind != ev.Type.Kind {
			continue
		}
		if err := reg.fn(ctx, ev); err != nil {
			d.log.Error().Err(err).
				Str("action", string(ev.Action)).
				Str("follow_type", ev.Type.String()).
				Uint64("leader", ev.LeaderID).
				Uint64("follower", ev.FollowerID).
				Msg("follow event listener failed")
		}
	}
}
