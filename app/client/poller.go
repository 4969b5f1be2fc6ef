package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"edusloth/app/logger"
	"edusloth/app/model"
)

// JobKey 标识一个被观察的异步任务：
// GenerationType 为空时表示转写任务，否则表示对应类型的生成任务。
type JobKey struct {
	ContentID      string
	GenerationType string
}

// JobView 任务的一次观察快照
type JobView struct {
	Status        model.JobStatus
	Error         string
	Transcription *model.Transcription
	Generation    *model.GeneratedContent
}

// JobFetcher 查询任务当前状态；任务不存在时返回 ErrNotFound
type JobFetcher interface {
	FetchJob(ctx context.Context, key JobKey) (*JobView, error)
}

// JobStarter 发起任务
type JobStarter interface {
	StartJob(ctx context.Context, key JobKey) error
}

// SessionState 轮询会话状态
type SessionState int

const (
	// StateNotStarted 尚未观察到任务（包括查询返回不存在）
	StateNotStarted SessionState = iota
	// StateChecking 正在按固定间隔轮询
	StateChecking
	// StateDone 任务已完成
	StateDone
	// StateFailed 任务已失败
	StateFailed
	// StateTimedOut 超出最大观察窗口，任务仍未到达终止状态
	StateTimedOut
)

// String 返回状态名称
func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateChecking:
		return "checking"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

const (
	defaultInterval  = 5 * time.Second
	defaultMaxWindow = 10 * time.Minute
)

// Options 轮询配置
type Options struct {
	// Interval 轮询间隔，默认 5 秒
	Interval time.Duration
	// MaxWindow 最大观察窗口，默认 10 分钟；
	// 最多执行 MaxWindow/Interval 次查询
	MaxWindow time.Duration
	// StopOnError 查询出错（非"任务不存在"）时是否停止轮询；
	// 默认 false，记录错误并在下一个间隔继续
	StopOnError bool
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = defaultMaxWindow
	}
	return opts
}

// Poller 异步任务轮询器。
// 每个任务键同一时刻最多一个活跃会话，重新启动会先取消旧会话。
type Poller struct {
	fetcher JobFetcher
	opts    Options
	logger  *logger.Logger

	mu       sync.Mutex
	sessions map[JobKey]*Session
}

// NewPoller 创建轮询器
func NewPoller(fetcher JobFetcher, opts Options, log *logger.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		opts:     opts.withDefaults(),
		logger:   log,
		sessions: make(map[JobKey]*Session),
	}
}

// Start 开始观察一个任务。
// 同一键已有活跃会话时先取消并等待其退出，再启动新会话。
func (p *Poller) Start(ctx context.Context, key JobKey) *Session {
	p.mu.Lock()
	if prev, ok := p.sessions[key]; ok {
		prev.Stop()
		<-prev.Done()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		key:    key,
		state:  StateChecking,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.sessions[key] = s
	p.mu.Unlock()

	go p.run(sessionCtx, s)
	return s
}

// Begin 发起任务并开始观察。
// 发起失败时不启动会话；启动后第一次状态查询立即执行。
func (p *Poller) Begin(ctx context.Context, starter JobStarter, key JobKey) (*Session, error) {
	if err := starter.StartJob(ctx, key); err != nil {
		return nil, err
	}
	return p.Start(ctx, key), nil
}

// Session 返回某个键的当前会话，没有时返回 nil
func (p *Poller) Session(key JobKey) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[key]
}

// StopAll 取消全部活跃会话并等待它们退出
func (p *Poller) StopAll() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
		<-s.Done()
	}
}

// run 轮询循环：立即查询一次，之后按固定间隔查询，
// 总查询次数不超过 MaxWindow/Interval。
func (p *Poller) run(ctx context.Context, s *Session) {
	defer close(s.done)
	defer s.cancel()

	maxPolls := int(p.opts.MaxWindow / p.opts.Interval)
	if maxPolls < 1 {
		maxPolls = 1
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for polls := 0; polls < maxPolls; polls++ {
		if polls > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}

		view, err := p.fetcher.FetchJob(ctx, s.key)
		if ctx.Err() != nil {
			// 会话已取消，丢弃在途结果
			return
		}
		s.recordPoll()

		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// 任务不存在：本次会话结束，不视为错误
				s.finish(StateNotStarted, nil, nil)
				return
			}

			p.logger.Warnf("查询任务状态失败: content=%s type=%s: %v", s.key.ContentID, s.key.GenerationType, err)
			s.setErr(err)
			if p.opts.StopOnError {
				return
			}
			continue
		}

		s.setCurrent(view)

		switch view.Status {
		case model.JobStatusCompleted:
			s.finish(StateDone, view, nil)
			return
		case model.JobStatusFailed:
			s.finish(StateFailed, view, nil)
			return
		}
	}

	p.logger.Warnf("任务超出最大观察窗口仍未完成: content=%s type=%s", s.key.ContentID, s.key.GenerationType)
	s.timeout()
}

// Session 单个任务键的轮询会话。
// 状态只由轮询循环写入，可被任意读者并发读取。
type Session struct {
	key    JobKey
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	state   SessionState
	current *JobView
	lastErr error
	polls   int
}

// Key 返回会话观察的任务键
func (s *Session) Key() JobKey {
	return s.key
}

// State 返回会话当前状态
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current 返回最近一次观察到的任务快照，尚未观察到时返回 nil
func (s *Session) Current() *JobView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Err 返回最近一次查询错误；任务不存在不算错误
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Polls 返回已执行的查询次数
func (s *Session) Polls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polls
}

// Stop 取消会话；对已结束的会话调用无副作用
func (s *Session) Stop() {
	s.cancel()
}

// Done 会话结束（终止、取消或超时）时关闭
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) recordPoll() {
	s.mu.Lock()
	s.polls++
	s.mu.Unlock()
}

func (s *Session) setCurrent(view *JobView) {
	s.mu.Lock()
	s.current = view
	s.mu.Unlock()
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) finish(state SessionState, view *JobView, err error) {
	s.mu.Lock()
	s.state = state
	if view != nil {
		s.current = view
	}
	if state == StateNotStarted {
		s.current = nil
	}
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) timeout() {
	s.mu.Lock()
	s.state = StateTimedOut
	s.mu.Unlock()
}