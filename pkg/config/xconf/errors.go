package xconf

import "errors"

// 配置加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrInvalidTagEntry 表示 tags 清单项结构非法
	// （既不是字符串也不是键到标量值的映射）。
	ErrInvalidTagEntry = errors.New("xconf: invalid tag entry")

	// ErrInvalidEscapeCacheTTL 表示 escape_cache.ttl 不是合法的时长字符串。
	ErrInvalidEscapeCacheTTL = errors.New("xconf: invalid escape_cache ttl")
)
