package xmark

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// =============================================================================
// Config：进程级配置（不可变快照 + 原子交换）
// =============================================================================

// Config 是 Annotator 的配置快照。
//
// 通常启动时设置一次，运行期可通过 UpdateConfig 整体替换；
// Annotator 持有的快照按不可变约定使用，读路径无锁。
type Config struct {
	// Application 应用名，内置 application 标签的取值。为空时该标签省略。
	Application string

	// Tags 有序标签清单。清单顺序即注释内的输出顺序。
	// 为空时使用默认清单 [application]。
	Tags []Spec

	// Prepend 为 true 时注释拼接在 SQL 之前，否则之后。默认 false（后置）。
	Prepend bool

	// Cache 为 true 时渲染结果缓存在 Store 的缓存槽内，
	// 由上下文写入（Set/SetScoped/Clear）失效。默认 false（每次重算）。
	Cache bool
}

// normalize 校验并返回规整后的副本（清单切片复制，默认清单补齐）。
func (c Config) normalize() (Config, error) {
	if len(c.Tags) == 0 {
		c.Tags = []Spec{{Key: KeyApplication}}
	} else {
		tags := make([]Spec, len(c.Tags))
		copy(tags, c.Tags)
		c.Tags = tags
	}
	for _, spec := range c.Tags {
		if spec.Key == "" {
			return Config{}, ErrEmptyTagKey
		}
	}
	return c, nil
}

// =============================================================================
// Annotator 选项
// =============================================================================

// Option 定义 Annotator 可选配置函数类型。
type Option func(*annotatorOptions)

type annotatorOptions struct {
	registry        *Registry
	escapeCacheSize int
	escapeCacheTTL  time.Duration
}

// WithRegistry 注入外部 Registry（默认自建）。
// 内置默认标签只在键未注册时补齐，不覆盖外部注册项。
func WithRegistry(r *Registry) Option {
	return func(o *annotatorOptions) {
		o.registry = r
	}
}

// WithEscapeCache 启用转义结果缓存。
//
// 同一 controller/action 下渲染出的注释内容高度重复，定点剥离按原始内容
// 记忆化后，热路径退化为一次 LRU 查询。ttl 为 0 表示条目永不过期。
// 默认不启用。
func WithEscapeCache(size int, ttl time.Duration) Option {
	return func(o *annotatorOptions) {
		o.escapeCacheSize = size
		o.escapeCacheTTL = ttl
	}
}

// =============================================================================
// Annotator
// =============================================================================

// Annotator 按配置的有序标签清单渲染 SQL 注释并拼接到查询语句。
//
// 必须通过 [New] 创建。所有方法并发安全：配置读取走原子指针，
// 每执行单元的状态隔离在各自的 Store 内。
type Annotator struct {
	cfg      atomic.Pointer[Config]
	registry *Registry
	escCache *expirable.LRU[string, string]
}

// New 创建 Annotator。
//
// cfg.Tags 为空时使用默认清单 [application]；清单中存在空键返回 ErrEmptyTagKey。
// WithEscapeCache 的 size <= 0 或 ttl < 0 返回 ErrInvalidEscapeCache。
func New(cfg Config, opts ...Option) (*Annotator, error) {
	o := &annotatorOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	a := &Annotator{registry: o.registry}
	if a.registry == nil {
		a.registry = NewRegistry()
	}
	a.cfg.Store(&normalized)
	registerBuiltins(a.registry, func() string { return a.cfg.Load().Application })

	if o.escapeCacheSize != 0 || o.escapeCacheTTL != 0 {
		if o.escapeCacheSize <= 0 || o.escapeCacheTTL < 0 {
			return nil, ErrInvalidEscapeCache
		}
		a.escCache = expirable.NewLRU[string, string](o.escapeCacheSize, nil, o.escapeCacheTTL)
	}
	return a, nil
}

// Config 返回当前配置快照的副本。
func (a *Annotator) Config() Config {
	cfg := *a.cfg.Load()
	tags := make([]Spec, len(cfg.Tags))
	copy(tags, cfg.Tags)
	cfg.Tags = tags
	return cfg
}

// UpdateConfig 原子替换整份配置。
//
// 设计决策: 配置交换不主动遍历失效各执行单元的缓存槽（Annotator 不持有
// Store 清单）。缓存槽记录渲染时的配置指针，指针不同即未命中，
// 旧配置下的缓存在下一次渲染时自然作废。
func (a *Annotator) UpdateConfig(cfg Config) error {
	normalized, err := cfg.normalize()
	if err != nil {
		return err
	}
	a.cfg.Store(&normalized)
	return nil
}

// Registry 返回 Annotator 使用的 Registry，供注册默认标签。
func (a *Annotator) Registry() *Registry {
	return a.registry
}

// =============================================================================
// 渲染与拼接
// =============================================================================

// Render 渲染当前上下文下的注释字符串。
//
// 按清单顺序逐项解析：显式 Handler > Registry 默认 > Store 直查；
// 解析出 nil 的标签整体省略（不输出 `key:`）。全部省略时返回空串（无注释）。
// Handler 返回的错误原样传播，不在此处兜底。
//
// s 可以为 nil（无执行单元上下文）：Store 直查一律缺失，静态/生产者标签照常解析。
func (a *Annotator) Render(s *Store) (string, error) {
	return a.render(a.cfg.Load(), s)
}

// Annotate 将注释拼接到 sql。
//
// Prepend 为 true 时 `"<注释> <sql>"`，否则 `"<sql> <注释>"`，
// 整体去除首尾空白；注释为空时仅返回去除首尾空白的 sql。
func (a *Annotator) Annotate(s *Store, sql string) (string, error) {
	cfg := a.cfg.Load()
	comment, err := a.render(cfg, s)
	if err != nil {
		return "", err
	}
	if comment == "" {
		return strings.TrimSpace(sql), nil
	}
	if cfg.Prepend {
		return strings.TrimSpace(comment + " " + sql), nil
	}
	return strings.TrimSpace(sql + " " + comment), nil
}

// AnnotateContext 是 Annotate 的 context 便捷形式，Store 取自 ctx（可缺失）。
func (a *Annotator) AnnotateContext(ctx context.Context, sql string) (string, error) {
	return a.Annotate(FromContext(ctx), sql)
}

// render 在给定配置快照下渲染。同一次调用内配置一致（Annotate 复用同一快照）。
func (a *Annotator) render(cfg *Config, s *Store) (string, error) {
	if cfg.Cache {
		if comment, ok := s.cachedComment(cfg); ok {
			return comment, nil
		}
	}

	content, err := a.renderContent(cfg, s)
	if err != nil {
		return "", err
	}

	var comment string
	if content != "" {
		comment = "/*" + a.escape(content) + "*/"
	}
	if cfg.Cache {
		s.storeComment(cfg, comment)
	}
	return comment, nil
}

// renderContent 产出未包裹的 `k1:v1,k2:v2` 内容串。
func (a *Annotator) renderContent(cfg *Config, s *Store) (string, error) {
	var (
		b     strings.Builder
		wrote bool
	)
	err := a.resolveTags(cfg, s, func(key string, value any) {
		if wrote {
			b.WriteByte(',')
		}
		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(fmt.Sprint(value))
		wrote = true
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// resolveTags 按清单顺序解析标签，对每个非 nil 值回调 emit。
//
// 解析优先级：显式 Handler > Registry 默认 > Store 直查。
// Store 快照在一次解析内只取一份，所有 ContextProducer 看到一致视图。
func (a *Annotator) resolveTags(cfg *Config, s *Store, emit func(key string, value any)) error {
	var (
		snapshot Values
		snapped  bool
	)
	for _, spec := range cfg.Tags {
		handler := spec.Handler
		if handler.isZero() {
			if h, ok := a.registry.Lookup(spec.Key); ok {
				handler = h
			}
		}

		var (
			value any
			err   error
		)
		if handler.isZero() {
			// 无 Handler：Store 直查，缺失即省略
			value, _ = s.Get(spec.Key)
		} else {
			if handler.kind == handlerContextProducer && !snapped {
				snapshot = s.Values()
				snapped = true
			}
			value, err = handler.resolve(snapshot)
			if err != nil {
				return fmt.Errorf("xmark: tag %q: %w", spec.Key, err)
			}
		}
		if value == nil {
			continue
		}
		emit(spec.Key, value)
	}
	return nil
}

// escape 剥离内容中的注释定界符，可选经 LRU 记忆化。
func (a *Annotator) escape(content string) string {
	if a.escCache == nil {
		return stripDelimiters(content)
	}
	if escaped, ok := a.escCache.Get(content); ok {
		return escaped
	}
	escaped := stripDelimiters(content)
	a.escCache.Add(content, escaped)
	return escaped
}
