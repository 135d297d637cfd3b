package xmark

import (
	"os"
	"sync"
)

// =============================================================================
// Handler：封闭的标签取值变体
// =============================================================================

// handlerKind 区分 Handler 的取值方式。
type handlerKind uint8

const (
	handlerNone handlerKind = iota // 零值：无显式 Handler，回退 Registry / Store 直查
	handlerStatic
	handlerProducer
	handlerContextProducer
)

// Handler 描述一个标签值的解析方式。
//
// 设计决策: 采用封闭变体（Static / Producer / ContextProducer）+ 单点 switch 分派，
// 而非接受 any 后在运行时反射判断可调用性与参数个数。变体封闭使得解析路径
// 可静态核对，零值即"无 Handler"，Spec{Key: "controller"} 直接表达裸键。
type Handler struct {
	kind    handlerKind
	static  any
	produce func() (any, error)
	derive  func(Values) (any, error)
}

// Static 构造常量标签：每次解析返回固定值。
// v 为 nil 时该标签恒被省略。
func Static(v any) Handler {
	return Handler{kind: handlerStatic, static: v}
}

// Producer 构造无参生产者标签：每次解析调用 fn。
// fn 返回 (nil, nil) 表示本次省略该标签；错误原样传播。
func Producer(fn func() (any, error)) Handler {
	return Handler{kind: handlerProducer, produce: fn}
}

// ContextProducer 构造带上下文生产者标签：每次解析传入 Store 内容快照。
// 快照在一次 Render 内只取一份，所有 ContextProducer 看到一致视图。
func ContextProducer(fn func(Values) (any, error)) Handler {
	return Handler{kind: handlerContextProducer, derive: fn}
}

// isZero 判断是否为"无 Handler"。
func (h Handler) isZero() bool {
	return h.kind == handlerNone
}

// resolve 按变体取值。snapshot 仅在 ContextProducer 变体时使用。
func (h Handler) resolve(snapshot Values) (any, error) {
	switch h.kind {
	case handlerStatic:
		return h.static, nil
	case handlerProducer:
		if h.produce == nil {
			return nil, nil
		}
		return h.produce()
	case handlerContextProducer:
		if h.derive == nil {
			return nil, nil
		}
		return h.derive(snapshot)
	default:
		return nil, nil
	}
}

// =============================================================================
// Spec：有序标签清单的一项
// =============================================================================

// Spec 是标签清单的一项：键 + 可选的显式 Handler。
//
// Handler 为零值时按裸键处理：先查 Registry 默认 Handler，
// 未注册则直接从 Store 读取同名键。清单顺序即输出顺序。
type Spec struct {
	Key     string
	Handler Handler
}

// =============================================================================
// Registry：裸键的默认 Handler 表
// =============================================================================

// Registry 维护键到默认 Handler 的映射，供裸键标签回退查询。
//
// 读多写少：注册属于启动期/管理性操作，简单互斥即可，不优化写路径。
// 所有方法并发安全。
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry 创建空的 Registry。
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register 注册（或覆盖）键的默认 Handler。
func (r *Registry) Register(key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = h
}

// Deregister 移除键的默认 Handler。
func (r *Registry) Deregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, key)
}

// Lookup 返回键的默认 Handler。
func (r *Registry) Lookup(key string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[key]
	return h, ok
}

// registerIfAbsent 仅在键未注册时写入，用于内置默认项，不覆盖使用方的注册。
func (r *Registry) registerIfAbsent(key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[key]; !ok {
		r.handlers[key] = h
	}
}

// =============================================================================
// 内置默认 Handler
// =============================================================================

// hostname 进程生命周期内不变，取一次后复用。
var hostnameOnce = sync.OnceValues(os.Hostname)

// registerBuiltins 注册内置默认标签，已有注册不被覆盖。
//
//   - application: 配置的应用名（appName 闭包），为空时省略
//   - pid:         当前进程号
//   - hostname:    主机名，获取失败时省略（不因环境问题使查询路径报错）
func registerBuiltins(r *Registry, appName func() string) {
	r.registerIfAbsent(KeyApplication, Producer(func() (any, error) {
		if name := appName(); name != "" {
			return name, nil
		}
		return nil, nil
	}))
	r.registerIfAbsent(KeyPID, Static(os.Getpid()))
	r.registerIfAbsent(KeyHostname, Producer(func() (any, error) {
		name, err := hostnameOnce()
		if err != nil || name == "" {
			return nil, nil
		}
		return name, nil
	}))
}
