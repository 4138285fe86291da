package cache

import "testing"

func TestPatternsCachesCompiled(t *testing.T) {
	p := NewPatterns()

	first, err := p.Get(`^admin\..*`)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := p.Get(`^admin\..*`)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("expected the same compiled pattern on repeat lookup")
	}
	if p.Len() != 1 {
		t.Errorf("expected 1 cached pattern, got %d", p.Len())
	}
	if !first.MatchString("admin.users") {
		t.Error("compiled pattern does not match")
	}
}

func TestPatternsInvalidNotCached(t *testing.T) {
	p := NewPatterns()

	if _, err := p.Get(`[unclosed`); err == nil {
		t.Fatal("expected compile error")
	}
	if p.Len() != 0 {
		t.Errorf("invalid pattern was cached, len = %d", p.Len())
	}
}

func TestPatternsMaxSize(t *testing.T) {
	p := NewPatterns(WithMaxSize(2))

	for _, pat := range []string{"a", "b", "c"} {
		if _, err := p.Get(pat); err != nil {
			t.Fatalf("Get(%q): %v", pat, err)
		}
	}
	if p.Len() > 2 {
		t.Errorf("cache exceeded max size: %d", p.Len())
	}
}
