package xmark

import "log/slog"

// =============================================================================
// slog 集成
// =============================================================================

// AppendAttrs 将当前上下文解析出的标签追加到现有切片。
// 与注释渲染走同一套解析规则（顺序、省略、Handler 分派），
// 日志里看到的标签与数据库侧看到的注释一一对应。
//
// 热路径可传入预分配切片避免重复分配。Handler 错误原样传播。
func (a *Annotator) AppendAttrs(attrs []slog.Attr, s *Store) ([]slog.Attr, error) {
	err := a.resolveTags(a.cfg.Load(), s, func(key string, value any) {
		attrs = append(attrs, slog.Any(key, value))
	})
	return attrs, err
}

// Attrs 从当前上下文解析标签，转换为 slog.Attr 切片。
// 全部省略时返回 nil。每次调用分配新切片，热路径建议使用 AppendAttrs。
func (a *Annotator) Attrs(s *Store) ([]slog.Attr, error) {
	attrs, err := a.AppendAttrs(make([]slog.Attr, 0, len(a.cfg.Load().Tags)), s)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}
