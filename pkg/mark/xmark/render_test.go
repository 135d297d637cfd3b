package xmark_test

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

func newAnnotator(t *testing.T, cfg xmark.Config, opts ...xmark.Option) *xmark.Annotator {
	t.Helper()
	a, err := xmark.New(cfg, opts...)
	require.NoError(t, err)
	return a
}

// =============================================================================
// 构造与配置
// =============================================================================

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Application: "myapp"})

	cfg := a.Config()
	assert.Equal(t, []xmark.Spec{{Key: xmark.KeyApplication}}, cfg.Tags, "default tag list is [application]")
	assert.False(t, cfg.Prepend)
	assert.False(t, cfg.Cache)

	comment, err := a.Render(xmark.NewStore())
	require.NoError(t, err)
	assert.Equal(t, "/*application:myapp*/", comment)
}

func TestNewRejectsEmptyTagKey(t *testing.T) {
	t.Parallel()

	_, err := xmark.New(xmark.Config{Tags: []xmark.Spec{{Key: ""}}})
	assert.ErrorIs(t, err, xmark.ErrEmptyTagKey)
}

func TestNewRejectsInvalidEscapeCache(t *testing.T) {
	t.Parallel()

	_, err := xmark.New(xmark.Config{}, xmark.WithEscapeCache(-1, time.Minute))
	assert.ErrorIs(t, err, xmark.ErrInvalidEscapeCache)

	_, err = xmark.New(xmark.Config{}, xmark.WithEscapeCache(16, -time.Second))
	assert.ErrorIs(t, err, xmark.ErrInvalidEscapeCache)
}

func TestConfigReturnsDetachedCopy(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{{Key: "a"}, {Key: "b"}}})

	cfg := a.Config()
	cfg.Tags[0] = xmark.Spec{Key: "mutated"}

	assert.Equal(t, "a", a.Config().Tags[0].Key, "caller mutation must not leak in")
}

// =============================================================================
// 渲染：顺序、省略、取值变体
// =============================================================================

func TestRenderOrderFollowsTagList(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{{Key: "a"}, {Key: "b"}}})
	s := xmark.NewStore()
	s.Set(map[string]any{"b": "bv", "a": "av"})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:av,b:bv*/", comment, "output order follows tag list, not map order")
}

func TestRenderOmitsAbsentAndNil(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "missing"},
		{Key: "present"},
		{Key: "explicit_nil"},
		{Key: "static_nil", Handler: xmark.Static(nil)},
	}})
	s := xmark.NewStore()
	s.Set(map[string]any{"present": "v", "explicit_nil": nil})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*present:v*/", comment, "nil/absent tags omitted entirely, no bare `key:`")
}

func TestRenderEmptyContent(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{{Key: "missing"}}})

	comment, err := a.Render(xmark.NewStore())
	require.NoError(t, err)
	assert.Empty(t, comment, "no comment at all when every tag is omitted")
}

func TestRenderHandlerVariants(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "static", Handler: xmark.Static("fixed")},
		{Key: "number", Handler: xmark.Static(42)},
		{Key: "produced", Handler: xmark.Producer(func() (any, error) { return "p", nil })},
		{Key: "custom", Handler: xmark.ContextProducer(func(v xmark.Values) (any, error) { return v["foo"], nil })},
	}})
	s := xmark.NewStore()
	s.Set(map[string]any{"foo": "bar"})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*static:fixed,number:42,produced:p,custom:bar*/", comment)
}

func TestRenderExplicitHandlerBeatsRegistryAndStore(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "k", Handler: xmark.Static("explicit")},
	}})
	a.Registry().Register("k", xmark.Static("registry"))

	s := xmark.NewStore()
	s.Set(map[string]any{"k": "store"})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*k:explicit*/", comment)
}

func TestRenderRegistryDefaultBeatsStore(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{{Key: "k"}}})
	a.Registry().Register("k", xmark.Static("registry"))

	s := xmark.NewStore()
	s.Set(map[string]any{"k": "store"})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*k:registry*/", comment)
}

func TestRenderBuiltinTags(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{
		Application: "myapp",
		Tags:        []xmark.Spec{{Key: xmark.KeyApplication}, {Key: xmark.KeyPID}},
	})

	comment, err := a.Render(xmark.NewStore())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/*application:myapp,pid:%d*/", os.Getpid()), comment)
}

func TestRenderEmptyApplicationOmitted(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{})

	comment, err := a.Render(xmark.NewStore())
	require.NoError(t, err)
	assert.Empty(t, comment, "application tag omitted when no app name configured")
}

func TestRenderNilStore(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "static", Handler: xmark.Static("v")},
		{Key: "controller"},
	}})

	comment, err := a.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "/*static:v*/", comment)
}

func TestRenderHandlerErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("collaborator failed")
	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "bad", Handler: xmark.Producer(func() (any, error) { return nil, wantErr })},
	}})

	_, err := a.Render(xmark.NewStore())
	assert.ErrorIs(t, err, wantErr, "handler errors are never swallowed")

	_, err = a.Annotate(xmark.NewStore(), "SELECT 1")
	assert.ErrorIs(t, err, wantErr)
}

// =============================================================================
// 拼接
// =============================================================================

func TestAnnotate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     xmark.Config
		seed    map[string]any
		sql     string
		want    string
	}{
		{
			name: "append (default)",
			cfg: xmark.Config{Application: "myapp", Tags: []xmark.Spec{
				{Key: xmark.KeyApplication},
				{Key: "custom", Handler: xmark.ContextProducer(func(v xmark.Values) (any, error) { return v["foo"], nil })},
			}},
			seed: map[string]any{"foo": "bar"},
			sql:  "SELECT 1",
			want: "SELECT 1 /*application:myapp,custom:bar*/",
		},
		{
			name: "prepend",
			cfg: xmark.Config{Application: "myapp", Prepend: true, Tags: []xmark.Spec{
				{Key: xmark.KeyApplication},
				{Key: "custom", Handler: xmark.ContextProducer(func(v xmark.Values) (any, error) { return v["foo"], nil })},
			}},
			seed: map[string]any{"foo": "bar"},
			sql:  "SELECT 1",
			want: "/*application:myapp,custom:bar*/ SELECT 1",
		},
		{
			name: "empty comment leaves sql untouched",
			cfg:  xmark.Config{Tags: []xmark.Spec{{Key: "missing"}}},
			sql:  "SELECT 1",
			want: "SELECT 1",
		},
		{
			name: "whole result trimmed",
			cfg:  xmark.Config{Tags: []xmark.Spec{{Key: "missing"}}},
			sql:  "  SELECT 1  ",
			want: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newAnnotator(t, tt.cfg)
			s := xmark.NewStore()
			s.Set(tt.seed)

			got, err := a.Annotate(s, tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// 缓存
// =============================================================================

func TestRenderCacheIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	a := newAnnotator(t, xmark.Config{Cache: true, Tags: []xmark.Spec{
		{Key: "n", Handler: xmark.Producer(func() (any, error) {
			calls++
			return calls, nil
		})},
	}})
	s := xmark.NewStore()

	first, err := a.Render(s)
	require.NoError(t, err)
	second, err := a.Render(s)
	require.NoError(t, err)

	assert.Equal(t, first, second, "cache hit without intervening mutation")
	assert.Equal(t, 1, calls, "handler not re-invoked on cache hit")
}

func TestRenderNoCacheRecomputes(t *testing.T) {
	t.Parallel()

	calls := 0
	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{
		{Key: "n", Handler: xmark.Producer(func() (any, error) {
			calls++
			return "v", nil
		})},
	}})
	s := xmark.NewStore()

	first, err := a.Render(s)
	require.NoError(t, err)
	second, err := a.Render(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, calls, "cache disabled: recomputed per call")
}

func TestRenderCacheInvalidatedOnMutation(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Cache: true, Tags: []xmark.Spec{{Key: "a"}}})
	s := xmark.NewStore()
	s.Set(map[string]any{"a": 1})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:1*/", comment)

	s.Set(map[string]any{"a": 2})
	comment, err = a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:2*/", comment, "Set invalidates the cached comment")

	s.Clear()
	comment, err = a.Render(s)
	require.NoError(t, err)
	assert.Empty(t, comment, "Clear invalidates the cached comment")
}

func TestRenderCacheInvalidatedInsideAndAfterScope(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Cache: true, Tags: []xmark.Spec{{Key: "a"}}})
	s := xmark.NewStore()
	s.Set(map[string]any{"a": "outer"})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:outer*/", comment)

	err = s.SetScoped(map[string]any{"a": "inner"}, func() error {
		comment, err := a.Render(s)
		require.NoError(t, err)
		assert.Equal(t, "/*a:inner*/", comment, "entering the scope invalidates")
		return nil
	})
	require.NoError(t, err)

	comment, err = a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:outer*/", comment, "leaving the scope invalidates again")
}

func TestRenderCacheInvalidatedOnConfigSwap(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Cache: true, Tags: []xmark.Spec{{Key: "a"}}})
	s := xmark.NewStore()
	s.Set(map[string]any{"a": 1, "b": 2})

	comment, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*a:1*/", comment)

	require.NoError(t, a.UpdateConfig(xmark.Config{Cache: true, Tags: []xmark.Spec{{Key: "b"}}}))

	comment, err = a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, "/*b:2*/", comment, "cache from the old config snapshot must not survive the swap")
}

// =============================================================================
// 转义（渲染路径）
// =============================================================================

func TestRenderEscapesDelimiters(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t, xmark.Config{Tags: []xmark.Spec{{Key: "v"}}})
	s := xmark.NewStore()
	s.Set(map[string]any{"v": "x*/y/*z"})

	comment, err := a.Render(s)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(comment, "/*"))
	require.True(t, strings.HasSuffix(comment, "*/"))
	interior := comment[2 : len(comment)-2]
	assert.NotContains(t, interior, "*/", "no premature close inside the comment")
	assert.NotContains(t, interior, "/*")
}

func TestRenderEscapeCache(t *testing.T) {
	t.Parallel()

	a := newAnnotator(t,
		xmark.Config{Tags: []xmark.Spec{{Key: "v"}}},
		xmark.WithEscapeCache(8, 0),
	)
	s := xmark.NewStore()
	s.Set(map[string]any{"v": "a*/b"})

	first, err := a.Render(s)
	require.NoError(t, err)
	second, err := a.Render(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "/*v:ab*/", first)
}
