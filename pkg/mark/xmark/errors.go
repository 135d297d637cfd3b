package xmark

import "errors"

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xmark: nil context")

	// ErrEmptyTagKey 表示标签清单中存在空键。
	ErrEmptyTagKey = errors.New("xmark: empty tag key")

	// ErrInvalidEscapeCache 表示转义缓存配置无效（size <= 0 或 ttl < 0）。
	ErrInvalidEscapeCache = errors.New("xmark: invalid escape cache config")
)
