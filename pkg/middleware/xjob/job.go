package xjob

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// Func 任务函数适配器。ctx 携带本次执行的标签 Store，
// 任务应把它透传给所有数据库调用。
type Func func(ctx context.Context) error

// ErrorHandler 任务失败回调。
type ErrorHandler func(name string, err error)

// =============================================================================
// 选项
// =============================================================================

type jobOptions struct {
	base    context.Context
	tags    map[string]any
	onError ErrorHandler
}

// Option 配置 [Job] 的行为。
type Option func(*jobOptions)

// WithBaseContext 指定任务执行的根 context（默认 context.Background）。
// 用于接入进程级的取消信号。
func WithBaseContext(ctx context.Context) Option {
	return func(o *jobOptions) {
		if ctx != nil {
			o.base = ctx
		}
	}
}

// WithTags 为每次执行附加 job 之外的标签，如环境、分片等。
func WithTags(tags map[string]any) Option {
	return func(o *jobOptions) {
		o.tags = tags
	}
}

// WithErrorHandler 替换默认的失败处理（slog 记录）。
// 传 nil 则静默忽略错误。
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *jobOptions) {
		o.onError = fn
	}
}

// =============================================================================
// Job：独立 Store 模式
// =============================================================================

// taggedJob 实现 cron.Job，每次执行创建独立的标签 Store。
type taggedJob struct {
	name string
	fn   Func
	opts jobOptions
}

// Job 包装任务函数为 cron.Job。
//
// 每次触发创建新的 [xmark.Store]，写入 `job:<name>` 与 [WithTags]
// 指定的标签后注入 context 执行 fn，结束后清空 Store。
func Job(name string, fn Func, opts ...Option) cron.Job {
	o := jobOptions{
		base:    context.Background(),
		onError: logError,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &taggedJob{name: name, fn: fn, opts: o}
}

// Run 实现 cron.Job 接口。
func (j *taggedJob) Run() {
	if j.fn == nil {
		return
	}

	s := xmark.NewStore()
	updates := make(map[string]any, len(j.opts.tags)+1)
	for k, v := range j.opts.tags {
		updates[k] = v
	}
	updates[xmark.KeyJob] = j.name
	s.Set(updates)
	defer s.Clear()

	ctx, err := xmark.With(j.opts.base, s)
	if err != nil {
		// base 在 Job 构造时已兜底为 Background，不会走到这里
		ctx = context.Background()
	}
	if err := j.fn(ctx); err != nil && j.opts.onError != nil {
		j.opts.onError(j.name, err)
	}
}

func logError(name string, err error) {
	slog.Error("xjob: job failed", "job", name, "error", err)
}

// =============================================================================
// Wrapper：共享 Store 模式
// =============================================================================

// Wrapper 返回 cron.JobWrapper，用于 cron.New(cron.WithChain(...)) 的
// 包装链。被包装任务执行期间，共享 Store s 以作用域方式携带
// `job:<name>`，执行结束（含 panic）后恢复原值。
//
// s 为 nil 时包装退化为透传。
func Wrapper(s *xmark.Store, name string) cron.JobWrapper {
	return func(job cron.Job) cron.Job {
		return cron.FuncJob(func() {
			_ = s.SetScoped(map[string]any{xmark.KeyJob: name}, func() error {
				job.Run()
				return nil
			})
		})
	}
}
