package render

import (
	"sync"
	"testing"
)

func TestCacheKey(t *testing.T) {
	base := DefaultOptions()

	if cacheKey(base) == cacheKey(base.WithWidth(100)) {
		t.Error("different widths should produce different keys")
	}
	if cacheKey(base) == cacheKey(base.WithStyle(StyleLight)) {
		t.Error("different styles should produce different keys")
	}
	if cacheKey(base) != cacheKey(DefaultOptions()) {
		t.Error("same options should produce same key")
	}
}

func TestPoolGetAndPut(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions()

	r1, err := globalPool.get(opts)
	if err != nil || r1 == nil {
		t.Fatalf("get() = %v, %v", r1, err)
	}
	if CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", CacheSize())
	}
	globalPool.put(opts, r1)

	wide := opts.WithWidth(120)
	r2, err := globalPool.get(wide)
	if err != nil || r2 == nil {
		t.Fatalf("get() = %v, %v", r2, err)
	}
	globalPool.put(wide, r2)

	if CacheSize() != 2 {
		t.Errorf("CacheSize() = %d, want 2", CacheSize())
	}

	ClearCache()
	if CacheSize() != 0 {
		t.Errorf("CacheSize() after clear = %d, want 0", CacheSize())
	}
}

func TestPoolConcurrency(t *testing.T) {
	ClearCache()
	defer ClearCache()

	opts := DefaultOptions()
	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Markdown("streamed **reply**", opts); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent render: %v", err)
	}
	if CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", CacheSize())
	}
}

func TestCreateRendererWithInvalidStyle(t *testing.T) {
	if _, err := createRenderer(DefaultOptions().WithStyle("no/such/style.json")); err == nil {
		t.Error("expected error for missing style file")
	}
}
