package fstcache_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

func entries(pairs ...any) []fstcache.Entry {
	var out []fstcache.Entry

	for i := 0; i < len(pairs); i += 2 {
		out = append(out, fstcache.Entry{
			Key:    []byte(pairs[i].(string)),
			Offset: uint64(pairs[i+1].(int)),
		})
	}

	return out
}

func collectRange(tb testing.TB, c *fstcache.Cache, start, end fstcache.Bound) []fstcache.Entry {
	tb.Helper()

	got, err := c.Range(start, end).Collect()
	if err != nil {
		tb.Fatalf("Range failed: %v", err)
	}

	return got
}

func Test_Range_Respects_Endpoint_Openness(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	testCases := []struct {
		name  string
		start fstcache.Bound
		end   fstcache.Bound
		want  []fstcache.Entry
	}{
		{
			// The canonical dog..=gator window.
			name:  "ClosedWindowBetweenKeys",
			start: fstcache.Include([]byte("dog")),
			end:   fstcache.Include([]byte("gator")),
			want:  entries("dog", 12, "doggy", 24, "frog", 36),
		},
		{
			name:  "Unbounded",
			start: fstcache.Unbounded(),
			end:   fstcache.Unbounded(),
			want:  entries("cat", 0, "dog", 12, "doggy", 24, "frog", 36, "goose", 48),
		},
		{
			name:  "ExcludedStartSkipsExactKey",
			start: fstcache.Exclude([]byte("dog")),
			end:   fstcache.Unbounded(),
			want:  entries("doggy", 24, "frog", 36, "goose", 48),
		},
		{
			name:  "IncludedEndKeepsExactKey",
			start: fstcache.Unbounded(),
			end:   fstcache.Include([]byte("doggy")),
			want:  entries("cat", 0, "dog", 12, "doggy", 24),
		},
		{
			name:  "ExcludedEndDropsExactKey",
			start: fstcache.Unbounded(),
			end:   fstcache.Exclude([]byte("doggy")),
			want:  entries("cat", 0, "dog", 12),
		},
		{
			name:  "ExcludedStartBetweenKeysActsLikeIncluded",
			start: fstcache.Exclude([]byte("dofferty")),
			end:   fstcache.Unbounded(),
			want:  entries("dog", 12, "doggy", 24, "frog", 36, "goose", 48),
		},
		{
			name:  "EmptyWindow",
			start: fstcache.Include([]byte("e")),
			end:   fstcache.Exclude([]byte("f")),
			want:  nil,
		},
		{
			name:  "SingleKeyClosedWindow",
			start: fstcache.Include([]byte("frog")),
			end:   fstcache.Include([]byte("frog")),
			want:  entries("frog", 36),
		},
		{
			name:  "InvertedWindowIsEmpty",
			start: fstcache.Include([]byte("goose")),
			end:   fstcache.Exclude([]byte("cat")),
			want:  nil,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := collectRange(t, c, testCase.start, testCase.end)

			if diff := cmp.Diff(testCase.want, got); diff != "" {
				t.Fatalf("range mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_Range_Is_Restartable(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	start, end := fstcache.Include([]byte("dog")), fstcache.Include([]byte("gator"))

	first := collectRange(t, c, start, end)
	second := collectRange(t, c, start, end)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second pass differs (-first +second):\n%s", diff)
	}
}

func Test_Range_On_Empty_Store_Yields_Nothing(t *testing.T) {
	t.Parallel()

	c := emptyStore(t)

	got := collectRange(t, c, fstcache.Unbounded(), fstcache.Unbounded())
	if len(got) != 0 {
		t.Fatalf("got %d entries, want 0", len(got))
	}
}

func Test_Range_Stream_Is_Exhausted_After_Drain(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	stream := c.Range(fstcache.Unbounded(), fstcache.Unbounded())

	count := 0
	for {
		_, ok := stream.Next()
		if !ok {
			break
		}

		count++
	}

	if count != 5 {
		t.Fatalf("drained %d entries, want 5", count)
	}

	if _, ok := stream.Next(); ok {
		t.Fatal("Next after exhaustion returned an entry")
	}

	if err := stream.Err(); err != nil {
		t.Fatalf("Err after clean drain: %v", err)
	}
}
