package xhttp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// =============================================================================
// HTTP Header 常量
// =============================================================================

// HeaderRequestID 请求标识 Header（遵循 X- 前缀约定）。
const HeaderRequestID = "X-Request-ID"

// =============================================================================
// 选项
// =============================================================================

// RouteResolver 从请求解析 controller/action 标签值。
// 返回空字符串的字段不写入。
type RouteResolver func(r *http.Request) (controller, action string)

// MiddlewareOption 中间件选项。
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	resolve     RouteResolver
	requestID   bool
	traceparent bool
}

// WithRouteResolver 替换默认的路由解析器。
//
// 默认实现：controller 取 ServeMux 路由模式（r.Pattern，未匹配时回退 URL 路径），
// action 取请求方法。接入 gin/gorilla 等路由时用本选项换成框架的路由名。
func WithRouteResolver(fn RouteResolver) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.resolve = fn
	}
}

// WithRequestID 启用 request_id 标签。
// 透传上游 X-Request-ID，缺失时生成 UUID，使同一请求的查询在数据库侧可聚合。
func WithRequestID() MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.requestID = true
	}
}

// WithTraceparent 启用 traceparent 标签。
// 从请求 context 中的 OpenTelemetry span 提取 W3C traceparent
// （`00-<trace-id>-<span-id>-<flags>`），span 无效时不写入。
// 需要配合上游的 otel 传播中间件使用。
func WithTraceparent() MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.traceparent = true
	}
}

// =============================================================================
// 中间件
// =============================================================================

// Middleware 返回 HTTP 中间件。
// 每个请求创建独立的 Store 并注入 context，请求结束时 Clear。
func Middleware(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{resolve: defaultResolver}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := xmark.NewStore()
			s.Set(seedTags(r, cfg))
			// Store 的生命周期归请求所有：结束时清空（见 xmark 包文档）
			defer s.Clear()

			ctx, err := xmark.With(r.Context(), s)
			if err != nil { // r.Context() 始终非 nil，正常流程不可达
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// seedTags 汇总请求入口写入的标签。
func seedTags(r *http.Request, cfg *middlewareConfig) map[string]any {
	tags := make(map[string]any, 4)

	if cfg.resolve != nil {
		controller, action := cfg.resolve(r)
		if controller != "" {
			tags[xmark.KeyController] = controller
		}
		if action != "" {
			tags[xmark.KeyAction] = action
		}
	}

	if cfg.requestID {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		tags[xmark.KeyRequestID] = id
	}

	if cfg.traceparent {
		if tp := traceparent(r); tp != "" {
			tags[xmark.KeyTraceparent] = tp
		}
	}
	return tags
}

// defaultResolver 取 ServeMux 路由模式与请求方法。
func defaultResolver(r *http.Request) (controller, action string) {
	controller = r.Pattern
	if controller == "" {
		controller = r.URL.Path
	}
	return controller, r.Method
}

// traceparent 按 W3C Trace Context 格式序列化当前 span。
func traceparent(r *http.Request) string {
	sc := trace.SpanContextFromContext(r.Context())
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), sc.TraceFlags())
}
