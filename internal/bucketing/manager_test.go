package bucketing

import (
	"fmt"
	"sync"
	"testing"
)

func TestBucketIsStableAndInRange(t *testing.T) {
	bm := NewBucketingManager(8)

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("user-%d", i)
		b := bm.Bucket(key)
		if b < 0 || b >= 8 {
			t.Fatalf("Bucket(%q) = %d, out of range", key, b)
		}
		if again := bm.Bucket(key); again != b {
			t.Fatalf("Bucket(%q) changed from %d to %d", key, b, again)
		}
	}
}

func TestBucketSpreadsKeys(t *testing.T) {
	bm := NewBucketingManager(4)
	seen := make(map[int]int)
	for i := 0; i < 400; i++ {
		seen[bm.Bucket(fmt.Sprintf("user-%d", i))]++
	}
	if len(seen) != 4 {
		t.Errorf("keys landed in %d buckets, want all 4: %v", len(seen), seen)
	}
}

func TestBucketConcurrentUse(t *testing.T) {
	bm := NewBucketingManager(16)
	want := bm.Bucket("u-alice")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := bm.Bucket("u-alice"); got != want {
				t.Errorf("Bucket() = %d, want %d", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestNonPositiveBucketCount(t *testing.T) {
	bm := NewBucketingManager(0)
	if bm.Buckets() != 1 || bm.Bucket("anything") != 0 {
		t.Errorf("zero buckets should collapse to one bucket")
	}
}
