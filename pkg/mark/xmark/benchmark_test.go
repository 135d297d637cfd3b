package xmark_test

import (
	"testing"
	"time"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

func benchAnnotator(b *testing.B, cfg xmark.Config, opts ...xmark.Option) *xmark.Annotator {
	b.Helper()
	a, err := xmark.New(cfg, opts...)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	return a
}

func benchStore() *xmark.Store {
	s := xmark.NewStore()
	s.Set(map[string]any{"controller": "users", "action": "show"})
	return s
}

func benchConfig(cache bool) xmark.Config {
	return xmark.Config{
		Application: "benchapp",
		Cache:       cache,
		Tags: []xmark.Spec{
			{Key: xmark.KeyApplication},
			{Key: xmark.KeyController},
			{Key: xmark.KeyAction},
		},
	}
}

func BenchmarkRender(b *testing.B) {
	a := benchAnnotator(b, benchConfig(false))
	s := benchStore()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := a.Render(s); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderCached(b *testing.B) {
	a := benchAnnotator(b, benchConfig(true))
	s := benchStore()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := a.Render(s); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnnotate(b *testing.B) {
	a := benchAnnotator(b, benchConfig(false))
	s := benchStore()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := a.Annotate(s, "SELECT * FROM users WHERE id = $1"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnnotateEscapeCache(b *testing.B) {
	a := benchAnnotator(b, benchConfig(false), xmark.WithEscapeCache(128, time.Minute))
	s := benchStore()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := a.Annotate(s, "SELECT * FROM users WHERE id = $1"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSetScoped(b *testing.B) {
	s := xmark.NewStore()
	updates := map[string]any{"job": "cleanup"}

	b.ReportAllocs()
	for b.Loop() {
		_ = s.SetScoped(updates, func() error { return nil })
	}
}
