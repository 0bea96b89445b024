package fstcache_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

// =============================================================================
// LastLE against the canonical store
// =============================================================================

func Test_LastLE_Finds_Greatest_Key_Below_Bound(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	testCases := []struct {
		name       string
		width      int
		bound      string
		wantKey    string
		wantOffset uint64
	}{
		{"ExactMatch", 4, "frog", "frog", 36},
		{"BetweenKeysSameLength", 4, "full", "frog", 36},
		{"DifferentStartingLetter", 4, "goon", "frog", 36},
		{"BoundLongerThanAnyKey", 4, "goony", "frog", 36},
		{"BoundIsSuperstringOfKey", 3, "doge", "dog", 12},
		{"BoundIsPrefixOfLargerKey", 4, "goos", "frog", 36},
		{"ShorterBoundSameBranch", 4, "fry", "frog", 36},
		{"BoundShorterThanNextKey", 3, "do", "cat", 0},
		{"BetweenKeysDifferentLength", 5, "food", "doggy", 24},
		{"ProperPrefixExcludesLongerKey", 5, "fro", "doggy", 24},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			key, off, err := c.LastLE(testCase.width, []byte(testCase.bound))
			if err != nil {
				t.Fatalf("LastLE(%q) failed: %v", testCase.bound, err)
			}

			if string(key) != testCase.wantKey || off != testCase.wantOffset {
				t.Fatalf("LastLE(%q) = (%q, %d), want (%q, %d)",
					testCase.bound, key, off, testCase.wantKey, testCase.wantOffset)
			}
		})
	}
}

func Test_LastLE_Returns_None_Below_All_Keys(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	for _, bound := range []string{"candy", "cas", "c", ""} {
		key, _, err := c.LastLE(0, []byte(bound))
		if err != nil {
			t.Fatalf("LastLE(%q) failed: %v", bound, err)
		}

		if key != nil {
			t.Fatalf("LastLE(%q) = %q, want nil", bound, key)
		}
	}
}

func Test_LastLE_Returns_None_On_Empty_Store(t *testing.T) {
	t.Parallel()

	c := emptyStore(t)

	key, _, err := c.LastLE(0, []byte("anything"))
	if err != nil {
		t.Fatalf("LastLE failed: %v", err)
	}

	if key != nil {
		t.Fatalf("LastLE on empty store = %q, want nil", key)
	}
}

func Test_LastLE_Panics_On_Width_Mismatch(t *testing.T) {
	t.Parallel()

	c := seedStore(t)

	defer func() {
		if recover() == nil {
			t.Fatal("LastLE(3, frog) did not panic; found key has length 4")
		}
	}()

	_, _, _ = c.LastLE(3, []byte("frog"))
}

// =============================================================================
// LastLE against a brute-force oracle
// =============================================================================

func Test_LastLE_Matches_Linear_Scan_Property(t *testing.T) {
	seedCount := 40
	boundsPerSeed := 400

	for i := range seedCount {
		seed := int64(i + 1)

		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewSource(seed))
			keys := randSortedKeys(rng, 2+rng.Intn(120))

			c := storeFromKeys(t, keys)

			offsets := make(map[string]uint64, len(keys))
			offset := uint64(0)

			for _, k := range keys {
				offsets[string(k)] = offset
				offset += uint64(len(k)) // each value is the key itself
			}

			for range boundsPerSeed {
				bound := randBound(rng, keys)

				wantKey, wantOffset, wantFound := scanLastLE(keys, offsets, bound)

				width := 0
				if wantFound {
					width = len(wantKey)
				}

				gotKey, gotOffset, err := c.LastLE(width, bound)
				if err != nil {
					t.Fatalf("LastLE(%q) failed: %v", bound, err)
				}

				if !wantFound {
					if gotKey != nil {
						t.Fatalf("LastLE(%q) = %q, want none", bound, gotKey)
					}

					continue
				}

				if !bytes.Equal(gotKey, wantKey) || gotOffset != wantOffset {
					t.Fatalf("LastLE(%q) = (%q, %d), want (%q, %d)",
						bound, gotKey, gotOffset, wantKey, wantOffset)
				}
			}
		})
	}
}

// scanLastLE is the oracle: a linear scan over the sorted key list.
func scanLastLE(keys [][]byte, offsets map[string]uint64, bound []byte) ([]byte, uint64, bool) {
	for i := len(keys) - 1; i >= 0; i-- {
		if bytes.Compare(keys[i], bound) <= 0 {
			return keys[i], offsets[string(keys[i])], true
		}
	}

	return nil, 0, false
}

func storeFromKeys(tb testing.TB, keys [][]byte) *fstcache.Cache {
	tb.Helper()

	var index, values bytes.Buffer

	b, err := fstcache.NewBuilder(&index, &values)
	if err != nil {
		tb.Fatalf("New failed: %v", err)
	}

	for _, k := range keys {
		insertErr := b.Insert(k, k)
		if insertErr != nil {
			tb.Fatalf("Insert(%q) failed: %v", k, insertErr)
		}
	}

	if finishErr := b.Finish(); finishErr != nil {
		tb.Fatalf("Finish failed: %v", finishErr)
	}

	c, err := fstcache.New(index.Bytes(), values.Bytes())
	if err != nil {
		tb.Fatalf("open cache failed: %v", err)
	}

	return c
}

// randSortedKeys generates unique sorted keys over a tiny alphabet so
// bounds frequently share long prefixes with stored keys.
func randSortedKeys(rng *rand.Rand, count int) [][]byte {
	seen := make(map[string]bool, count)
	keys := make([][]byte, 0, count)

	for len(keys) < count {
		n := 1 + rng.Intn(8)
		k := make([]byte, n)

		for i := range k {
			k[i] = byte('a' + rng.Intn(3))
		}

		if seen[string(k)] {
			continue
		}

		seen[string(k)] = true
		keys = append(keys, k)
	}

	slices.SortFunc(keys, bytes.Compare)

	return keys
}

// randBound produces bounds related to stored keys (prefixes, extensions,
// single-byte edits) as well as unrelated random ones.
func randBound(rng *rand.Rand, keys [][]byte) []byte {
	if rng.Intn(4) == 0 {
		n := rng.Intn(9)
		b := make([]byte, n)

		for i := range b {
			b[i] = byte('a' + rng.Intn(4))
		}

		return b
	}

	b := append([]byte(nil), keys[rng.Intn(len(keys))]...)

	switch rng.Intn(3) {
	case 0:
		b = b[:rng.Intn(len(b)+1)]
	case 1:
		b = append(b, byte('a'+rng.Intn(4)))
	default:
		i := rng.Intn(len(b))
		b[i] = byte('a' + rng.Intn(4))
	}

	return b
}
