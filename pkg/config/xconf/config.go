package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式（推荐用于 K8s ConfigMap）。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// =============================================================================
// Loader
// =============================================================================

// Loader 从配置文件物化 xmark 配置，支持并发安全的 Reload。
// 必须通过 [Load] 或 [LoadBytes] 创建。
type Loader struct {
	mu      sync.Mutex
	path    string
	format  Format
	opts    *Options
	isBytes bool

	cfg     xmark.Config
	escSize int
	escTTL  time.Duration

	annotator *xmark.Annotator // 首次 Annotator() 时创建，之后复用
}

// Load 从文件路径创建 Loader。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func Load(path string, opts ...Option) (*Loader, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	l := &Loader{
		path:   path,
		format: format,
		opts:   options,
	}
	if err := l.parse(data); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadBytes 从字节数据创建 Loader。
// 需要显式指定格式，适用于 K8s ConfigMap 等场景。不支持 Reload/Watch。
func LoadBytes(data []byte, format Format, opts ...Option) (*Loader, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	l := &Loader{
		format:  format,
		opts:    options,
		isBytes: true,
	}
	if err := l.parse(data); err != nil {
		return nil, err
	}
	return l, nil
}

// Config 返回当前解析出的 xmark 配置（副本语义由 xmark 侧保证）。
func (l *Loader) Config() xmark.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// Annotator 返回由当前配置物化的 Annotator。
//
// 首次调用创建实例（escape_cache 配置在此时生效），之后复用同一实例；
// Reload 只替换配置快照，不重建实例，已分发出去的引用持续有效。
// extra 选项仅在首次创建时生效。
func (l *Loader) Annotator(extra ...xmark.Option) (*xmark.Annotator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.annotator != nil {
		return l.annotator, nil
	}

	opts := extra
	if l.escSize > 0 {
		opts = append(append([]xmark.Option{}, extra...),
			xmark.WithEscapeCache(l.escSize, l.escTTL))
	}
	a, err := xmark.New(l.cfg, opts...)
	if err != nil {
		return nil, err
	}
	l.annotator = a
	return a, nil
}

// Reload 重新加载配置文件并更新已物化的 Annotator。
//
// 解析失败时保留旧配置（原子性：要么整体生效，要么原样不动）。
// 从字节数据创建的 Loader 调用会返回错误。
func (l *Loader) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isBytes {
		return fmt.Errorf("xconf: cannot reload config created from bytes")
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	if err := l.parseLocked(data); err != nil {
		return err
	}
	if l.annotator != nil {
		return l.annotator.UpdateConfig(l.cfg)
	}
	return nil
}

// Path 返回配置文件路径。从字节数据创建的 Loader 返回空字符串。
func (l *Loader) Path() string {
	return l.path
}

// Format 返回配置格式。
func (l *Loader) Format() Format {
	return l.format
}

// =============================================================================
// 解析
// =============================================================================

func (l *Loader) parse(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.parseLocked(data)
}

// parseLocked 解析数据并在成功时整体替换 l.cfg / 转义缓存参数。
func (l *Loader) parseLocked(data []byte) error {
	k := koanf.New(l.opts.Delim)
	if len(data) > 0 {
		if err := loadData(k, data, l.format); err != nil {
			return err
		}
	}
	if l.opts.Path != "" {
		k = k.Cut(l.opts.Path)
	}

	tags, err := parseTags(k.Get("tags"))
	if err != nil {
		return err
	}

	escTTL := time.Duration(0)
	if raw := k.String("escape_cache.ttl"); raw != "" {
		escTTL, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidEscapeCacheTTL, raw)
		}
	}

	l.cfg = xmark.Config{
		Application: k.String("application"),
		Prepend:     k.Bool("prepend"),
		Cache:       k.Bool("cache"),
		Tags:        tags,
	}
	l.escSize = k.Int("escape_cache.size")
	l.escTTL = escTTL
	return nil
}

// parseTags 将 tags 清单项展开为有序 Spec 列表。
//
// 接受两种项：字符串（裸键）、映射（键 -> 标量静态值）。
// 多键映射按键字典序展开（见包文档）。其余结构返回 ErrInvalidTagEntry：
// 结构非法属于配置错误，加载时整体拒绝而非逐项忽略。
func parseTags(raw any) ([]xmark.Spec, error) {
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: tags must be a list", ErrInvalidTagEntry)
	}

	var specs []xmark.Spec
	for i, entry := range entries {
		switch e := entry.(type) {
		case string:
			if e == "" {
				return nil, fmt.Errorf("%w: empty key at index %d", ErrInvalidTagEntry, i)
			}
			specs = append(specs, xmark.Spec{Key: e})

		case map[string]any:
			keys := make([]string, 0, len(e))
			for key := range e {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if key == "" {
					return nil, fmt.Errorf("%w: empty key at index %d", ErrInvalidTagEntry, i)
				}
				value := e[key]
				if !isScalar(value) {
					return nil, fmt.Errorf("%w: %q at index %d: value must be a scalar",
						ErrInvalidTagEntry, key, i)
				}
				specs = append(specs, xmark.Spec{Key: key, Handler: xmark.Static(value)})
			}

		default:
			return nil, fmt.Errorf("%w: index %d has type %T", ErrInvalidTagEntry, i, entry)
		}
	}
	return specs, nil
}

// isScalar 判断静态标签值是否为标量。
// nil 合法（恒省略的标签），映射/列表非法。
func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
