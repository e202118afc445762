package normalization

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func cachedResult(label string) *Result {
	return &Result{
		Chosen: &Candidate{
			CanonicalLabel: label,
			Source:         StrategyExact,
			Confidence:     1.0,
		},
		Status: StatusResolved,
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	cache := NewMemoryCache(10)

	key := CacheKey(CategoryOrganism, "human")
	cache.Put(key, cachedResult("Homo sapiens"), time.Minute)

	entry, found := cache.Get(key)
	if !found {
		t.Fatal("Get returned not found for stored key")
	}
	if entry.Result.Chosen.CanonicalLabel != "Homo sapiens" {
		t.Errorf("cached label = %q, want Homo sapiens", entry.Result.Chosen.CanonicalLabel)
	}

	if _, found := cache.Get(CacheKey(CategoryOrganism, "missing")); found {
		t.Error("Get returned found for missing key")
	}
}

// Истекшая запись удаляется лениво при чтении
func TestMemoryCache_LazyExpiry(t *testing.T) {
	cache := NewMemoryCache(10)

	key := CacheKey(CategoryDisease, "asthma")
	cache.Put(key, cachedResult("Asthma"), 10*time.Millisecond)

	if _, found := cache.Get(key); !found {
		t.Fatal("entry should be available before TTL")
	}

	time.Sleep(20 * time.Millisecond)

	if _, found := cache.Get(key); found {
		t.Error("entry should expire after TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", cache.Len())
	}

	stats := cache.Stats()
	if stats.Evictions == 0 {
		t.Error("lazy expiry should count as eviction")
	}
}

// Нулевой и отрицательный TTL не сохраняются
func TestMemoryCache_NonPositiveTTLIgnored(t *testing.T) {
	cache := NewMemoryCache(10)

	cache.Put("a", cachedResult("A"), 0)
	cache.Put("b", cachedResult("B"), -time.Minute)
	cache.Put("c", nil, time.Minute)

	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

// Переполнение: сначала удаляются истекшие, затем самые старые записи
func TestMemoryCache_EvictionAtCapacity(t *testing.T) {
	cache := NewMemoryCache(3)

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("key-%d", i), cachedResult("X"), time.Minute)
		// Гарантируем различимые CreatedAt
		time.Sleep(2 * time.Millisecond)
	}

	cache.Put("key-3", cachedResult("Y"), time.Minute)

	if cache.Len() > 3 {
		t.Errorf("Len() = %d, want at most 3", cache.Len())
	}
	if _, found := cache.Get("key-3"); !found {
		t.Error("newest entry should survive eviction")
	}
	if _, found := cache.Get("key-0"); found {
		t.Error("oldest entry should be evicted at capacity")
	}
}

// Гонка записей по одному ключу: последняя запись побеждает, без паник
func TestMemoryCache_ConcurrentLastWriterWins(t *testing.T) {
	cache := NewMemoryCache(100)
	key := CacheKey(CategoryOrganism, "human")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Put(key, cachedResult(fmt.Sprintf("writer-%d", i)), time.Minute)
			cache.Get(key)
		}(i)
	}
	wg.Wait()

	entry, found := cache.Get(key)
	if !found {
		t.Fatal("entry should exist after concurrent writes")
	}
	// Какая именно запись победила - не детерминировано, но она целостна
	if entry.Result == nil || entry.Result.Chosen == nil {
		t.Error("winning entry should be a complete result")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(10)

	cache.Put("a", cachedResult("A"), time.Minute)
	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache(10)

	cache.Put("a", cachedResult("A"), time.Minute)
	cache.Put("b", cachedResult("B"), time.Minute)
	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", cache.Len())
	}
}
