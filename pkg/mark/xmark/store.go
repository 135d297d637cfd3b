package xmark

import (
	"context"
	"sync"
)

// =============================================================================
// 标签键常量
// =============================================================================

// 常用标签键，遵循下划线分隔的命名约定。
// 仅为约定俗成的键名，Store 本身接受任意字符串键。
const (
	KeyApplication = "application"
	KeyController  = "controller"
	KeyAction      = "action"
	KeyJob         = "job"
	KeyPID         = "pid"
	KeyHostname    = "hostname"
	KeyRequestID   = "request_id"
	KeyTraceparent = "traceparent"
)

// =============================================================================
// Store：执行单元级上下文存储
// =============================================================================

// Values 是 Store 内容的一次性只读快照，传递给 ContextProducer 类型的 Handler。
type Values map[string]any

// Store 是一个执行单元（请求、任务）内的可变键值存储。
//
// 下游生产者（HTTP 中间件、任务运行器）写入 controller/action/job 等键，
// 标签解析时读取。所有方法并发安全；不同执行单元各持一个 Store，互不可见。
//
// 缓存槽：当 Annotator 启用缓存时，渲染结果存放在 Store 内（每执行单元一个槽），
// 任何写入（Set/SetScoped 进出/Clear）都会使其失效。
//
// 零值可用，等价于 NewStore()。读方法对 nil 接收者安全（返回缺失）。
type Store struct {
	mu     sync.Mutex
	values map[string]any

	// 缓存槽。cacheCfg 记录渲染该注释时使用的配置快照指针，
	// 配置原子交换后指针不同，旧缓存自然失效。
	cached   string
	cacheCfg *Config
}

// NewStore 创建空的 Store。
func NewStore() *Store {
	return &Store{}
}

// Get 读取键的当前绑定。
// 键不存在时返回 (nil, false)；显式写入的 nil 返回 (nil, true)。
func (s *Store) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Values 返回当前内容的快照副本。
// 副本与 Store 脱钩，后续写入互不影响（浅拷贝，值本身不深拷贝）。
func (s *Store) Values() Values {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return nil
	}
	snap := make(Values, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// Set 将 updates 合并写入当前上下文，并使缓存失效。
// nil 接收者或空 updates 为无操作。
func (s *Store) Set(updates map[string]any) {
	if s == nil || len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(updates)
}

// SetScoped 在 body 执行期间将 updates 合并写入，body 结束后恢复原状。
//
// 语义为作用域获取/释放：
//  1. 仅对 updates 中出现的键记录先前绑定（存在与否、原值）
//  2. 应用 updates 并使缓存失效
//  3. 执行 body
//  4. 在所有退出路径（正常返回、错误、panic）上恢复先前绑定并再次使缓存失效
//
// 嵌套调用恢复到紧邻外层的值而非最外层之前的值：每次调用持有自己的恢复集，
// 不依赖全局快照。恢复后原本不存在的键回到"缺失"，而非存储的 nil。
//
// body 的返回值原样返回。body 为 nil 时等价于 Set(updates)。
func (s *Store) SetScoped(updates map[string]any, body func() error) error {
	if body == nil {
		s.Set(updates)
		return nil
	}
	if s == nil || len(updates) == 0 {
		return body()
	}

	prev := s.applyRecording(updates)
	defer s.restore(prev)
	return body()
}

// Clear 清空当前执行单元的上下文并使缓存失效。
// 执行单元生命周期的所有者（如请求中间件）负责在单元结束时调用。
func (s *Store) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = nil
	s.invalidateLocked()
}

// =============================================================================
// 内部：写入、恢复与缓存槽
// =============================================================================

// binding 记录一个键的先前状态，区分"曾缺失"与"曾显式为 nil"。
type binding struct {
	value   any
	present bool
}

func (s *Store) applyLocked(updates map[string]any) {
	if s.values == nil {
		s.values = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		s.values[k] = v
	}
	s.invalidateLocked()
}

// applyRecording 应用 updates 并返回恰好覆盖 updates 键集的先前绑定。
func (s *Store) applyRecording(updates map[string]any) map[string]binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make(map[string]binding, len(updates))
	for k := range updates {
		v, ok := s.values[k]
		prev[k] = binding{value: v, present: ok}
	}
	s.applyLocked(updates)
	return prev
}

// restore 恢复先前绑定并使缓存失效。
func (s *Store) restore(prev map[string]binding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, b := range prev {
		if b.present {
			// body 内可能调用了 Clear，map 需按需重建
			if s.values == nil {
				s.values = make(map[string]any, len(prev))
			}
			s.values[k] = b.value
		} else {
			delete(s.values, k)
		}
	}
	s.invalidateLocked()
}

func (s *Store) invalidateLocked() {
	s.cached = ""
	s.cacheCfg = nil
}

// cachedComment 返回在 cfg 下渲染过的缓存注释。
// 配置指针不一致视为未命中（配置交换后旧缓存失效）。
func (s *Store) cachedComment(cfg *Config) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheCfg != cfg {
		return "", false
	}
	return s.cached, true
}

// storeComment 写入缓存槽，标记其渲染时的配置。
func (s *Store) storeComment(cfg *Config, comment string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = comment
	s.cacheCfg = cfg
}

// =============================================================================
// Context 载体
// =============================================================================

type contextKey string

const keyStore = contextKey("xmark:store")

// With 将 Store 注入 context。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func With(ctx context.Context, s *Store) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyStore, s), nil
}

// FromContext 从 context 提取 Store，不存在返回 nil。
func FromContext(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(keyStore).(*Store); ok {
		return s
	}
	return nil
}

// Ensure 确保 context 已携带 Store：若已存在则原样返回，否则创建并注入。
// 执行单元的入口（中间件、任务包装器）用它做惰性创建。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func Ensure(ctx context.Context) (context.Context, *Store, error) {
	if ctx == nil {
		return nil, nil, ErrNilContext
	}
	if s := FromContext(ctx); s != nil {
		return ctx, s, nil
	}
	s := NewStore()
	ctx = context.WithValue(ctx, keyStore, s)
	return ctx, s, nil
}
