package transducer_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calvinalkan/fstcache/pkg/fstcache/internal/transducer"
)

// =============================================================================
// Build + Load roundtrip
// =============================================================================

type pair struct {
	key []byte
	out uint64
}

func build(tb testing.TB, pairs []pair) *transducer.FST {
	tb.Helper()

	var buf bytes.Buffer

	b, err := transducer.NewBuilder(&buf)
	if err != nil {
		tb.Fatalf("NewBuilder failed: %v", err)
	}

	for _, p := range pairs {
		insertErr := b.Insert(p.key, p.out)
		if insertErr != nil {
			tb.Fatalf("Insert(%q) failed: %v", p.key, insertErr)
		}
	}

	closeErr := b.Close()
	if closeErr != nil {
		tb.Fatalf("Close failed: %v", closeErr)
	}

	f, err := transducer.Load(buf.Bytes())
	if err != nil {
		tb.Fatalf("Load failed: %v", err)
	}

	return f
}

func Test_Get_Returns_Inserted_Outputs(t *testing.T) {
	t.Parallel()

	pairs := []pair{
		{[]byte("cat"), 0},
		{[]byte("dog"), 12},
		{[]byte("doggy"), 24},
		{[]byte("frog"), 36},
		{[]byte("goose"), 48},
	}

	f := build(t, pairs)

	if f.Len() != uint64(len(pairs)) {
		t.Fatalf("Len = %d, want %d", f.Len(), len(pairs))
	}

	for _, p := range pairs {
		out, found, err := f.Get(p.key)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", p.key, err)
		}

		if !found {
			t.Fatalf("Get(%q): not found", p.key)
		}

		if out != p.out {
			t.Fatalf("Get(%q) = %d, want %d", p.key, out, p.out)
		}
	}
}

func Test_Get_Misses_Absent_Keys(t *testing.T) {
	t.Parallel()

	f := build(t, []pair{
		{[]byte("dog"), 1},
		{[]byte("doggy"), 2},
	})

	for _, key := range [][]byte{
		[]byte(""),      // shorter than any key
		[]byte("do"),    // proper prefix of a key
		[]byte("dogg"),  // interior path, not final
		[]byte("doggz"), // diverges on the last byte
		[]byte("cat"),   // diverges on the first byte
		[]byte("dogs"),  // sibling of an interior byte
	} {
		_, found, err := f.Get(key)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", key, err)
		}

		if found {
			t.Fatalf("Get(%q): unexpectedly found", key)
		}
	}
}

func Test_Get_Handles_NonMonotone_Outputs(t *testing.T) {
	t.Parallel()

	// Output redistribution must handle a later key carrying a smaller
	// output than an earlier key sharing its prefix, including the case
	// where the residual lands on a final state.
	pairs := []pair{
		{[]byte("a"), 100},
		{[]byte("ab"), 7},
		{[]byte("ac"), 3},
		{[]byte("b"), 90},
	}

	f := build(t, pairs)

	for _, p := range pairs {
		out, found, err := f.Get(p.key)
		if err != nil || !found || out != p.out {
			t.Fatalf("Get(%q) = (%d, %t, %v), want (%d, true, nil)", p.key, out, found, err, p.out)
		}
	}
}

func Test_Empty_Key_Is_Allowed_First(t *testing.T) {
	t.Parallel()

	f := build(t, []pair{
		{[]byte(""), 5},
		{[]byte("a"), 9},
	})

	out, found, err := f.Get(nil)
	if err != nil || !found || out != 5 {
		t.Fatalf("Get(empty) = (%d, %t, %v), want (5, true, nil)", out, found, err)
	}

	out, found, err = f.Get([]byte("a"))
	if err != nil || !found || out != 9 {
		t.Fatalf("Get(a) = (%d, %t, %v), want (9, true, nil)", out, found, err)
	}
}

func Test_Empty_Automaton_Has_No_Keys(t *testing.T) {
	t.Parallel()

	f := build(t, nil)

	if f.Len() != 0 {
		t.Fatalf("Len = %d, want 0", f.Len())
	}

	_, found, err := f.Get([]byte("anything"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if found {
		t.Fatal("Get on empty automaton: unexpectedly found")
	}
}

// =============================================================================
// Insert ordering contract
// =============================================================================

func Test_Insert_Rejects_Unordered_Keys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	b, err := transducer.NewBuilder(&buf)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	if insertErr := b.Insert([]byte("m"), 1); insertErr != nil {
		t.Fatalf("Insert(m) failed: %v", insertErr)
	}

	err = b.Insert([]byte("m"), 2)
	if !errors.Is(err, transducer.ErrDuplicate) {
		t.Fatalf("duplicate insert: got %v, want ErrDuplicate", err)
	}

	err = b.Insert([]byte("a"), 3)
	if !errors.Is(err, transducer.ErrOutOfOrder) {
		t.Fatalf("out-of-order insert: got %v, want ErrOutOfOrder", err)
	}
}

func Test_Builder_Rejects_Use_After_Close(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	b, err := transducer.NewBuilder(&buf)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	if closeErr := b.Close(); closeErr != nil {
		t.Fatalf("Close failed: %v", closeErr)
	}

	if insertErr := b.Insert([]byte("a"), 1); !errors.Is(insertErr, transducer.ErrClosed) {
		t.Fatalf("Insert after Close: got %v, want ErrClosed", insertErr)
	}

	if closeErr := b.Close(); !errors.Is(closeErr, transducer.ErrClosed) {
		t.Fatalf("double Close: got %v, want ErrClosed", closeErr)
	}
}

// =============================================================================
// Load validation
// =============================================================================

func Test_Load_Rejects_Damaged_Bytes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	b, err := transducer.NewBuilder(&buf)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	if insertErr := b.Insert([]byte("key"), 7); insertErr != nil {
		t.Fatalf("Insert failed: %v", insertErr)
	}

	if closeErr := b.Close(); closeErr != nil {
		t.Fatalf("Close failed: %v", closeErr)
	}

	good := buf.Bytes()

	t.Run("TooShort", func(t *testing.T) {
		t.Parallel()

		_, loadErr := transducer.Load(good[:10])
		if !errors.Is(loadErr, transducer.ErrCorrupt) {
			t.Fatalf("got %v, want ErrCorrupt", loadErr)
		}
	})

	t.Run("BadMagic", func(t *testing.T) {
		t.Parallel()

		bad := append([]byte(nil), good...)
		bad[0] = 'X'

		_, loadErr := transducer.Load(bad)
		if !errors.Is(loadErr, transducer.ErrCorrupt) {
			t.Fatalf("got %v, want ErrCorrupt", loadErr)
		}
	})

	t.Run("BadVersion", func(t *testing.T) {
		t.Parallel()

		bad := append([]byte(nil), good...)
		bad[4] = 0xFF

		_, loadErr := transducer.Load(bad)
		if !errors.Is(loadErr, transducer.ErrIncompatible) {
			t.Fatalf("got %v, want ErrIncompatible", loadErr)
		}
	})

	t.Run("RootAddressOutOfRange", func(t *testing.T) {
		t.Parallel()

		bad := append([]byte(nil), good...)
		// Footer's root address field starts 16 bytes from the end.
		for i := len(bad) - 16; i < len(bad)-8; i++ {
			bad[i] = 0xFF
		}

		_, loadErr := transducer.Load(bad)
		if !errors.Is(loadErr, transducer.ErrCorrupt) {
			t.Fatalf("got %v, want ErrCorrupt", loadErr)
		}
	})
}
