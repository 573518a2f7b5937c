package node

import (
	"errors"
	"strings"
	"testing"

	"github.com/ByLCY/quire/scaled"
)

func TestListAppendPush(t *testing.T) {
	var l List
	if !l.Empty() {
		t.Fatalf("new list should be empty")
	}
	a, b, c := NewPenalty(1), NewPenalty(2), NewPenalty(3)
	l.Append(Chain(a, b))
	l.Push(c)
	if l.Head != c || l.Tail != b || Len(l.Head) != 3 {
		t.Fatalf("unexpected list shape: head=%v tail=%v len=%d", l.Head, l.Tail, Len(l.Head))
	}
	h := l.Take()
	if !l.Empty() || Len(h) != 3 {
		t.Fatalf("Take did not detach the chain")
	}
}

func TestGlueSpecReferences(t *testing.T) {
	spec := NewSpec(scaled.Unity, 0, Normal, 0, Normal)
	g1 := NewGlue(spec)
	if spec.Shared() {
		t.Fatalf("spec with one reference must not be shared")
	}
	g2 := NewGlue(spec)
	if !spec.Shared() || spec.Refs() != 2 {
		t.Fatalf("refs = %d, want 2", spec.Refs())
	}
	cp := CopyList(Chain(g1, g2))
	if spec.Refs() != 4 {
		t.Fatalf("copy should add references, got %d", spec.Refs())
	}
	Flush(cp)
	Flush(g1)
	Flush(g2)
	Flush(g2)
	if spec.Refs() < 0 {
		t.Fatalf("reference count went negative")
	}
	if spec.Refs() != 0 {
		t.Fatalf("refs = %d after flushing everything", spec.Refs())
	}
}

func TestCopyListIsDeep(t *testing.T) {
	inner := NewChar(0, 'x', scaled.Unity, 0, 0)
	box := NewHList()
	box.List = inner
	box.Width = scaled.Unity
	cp := CopyList(box).(*Box)
	if cp == box || cp.List == box.List {
		t.Fatalf("CopyList must not alias nodes")
	}
	if Dump(cp) != Dump(box) {
		t.Fatalf("copy dumps differently:\n%s\n%s", Dump(cp), Dump(box))
	}
}

func TestPoolCapacity(t *testing.T) {
	p := NewPool(5)
	if err := p.Alloc(ActiveSize); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := p.Alloc(ActiveSize); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected out of memory, got %v", err)
	}
	p.Free(ActiveSize)
	if p.InUse() != 0 || p.Peak() != ActiveSize {
		t.Fatalf("inUse=%d peak=%d", p.InUse(), p.Peak())
	}
}

func TestDumpAndDigest(t *testing.T) {
	box := NewHList()
	box.Width = 10 * scaled.Unity
	box.Height = 7 * scaled.Unity
	box.List = Chain(
		NewChar(0, 'A', 5*scaled.Unity, 7*scaled.Unity, 0),
		NewParamGlue(NewSpec(scaled.Unity, scaled.Unity, Fil, 0, Normal), RightSkipGlue),
		NewPenalty(-10000),
	)
	got := Dump(box)
	want := "\\hbox(7.0+0.0)x10.0\n.\\font0 A\n.\\glue(\\rightskip) 1.0 plus 1.0fil\n.\\penalty -10000\n"
	if got != want {
		t.Fatalf("Dump mismatch:\n got %q\nwant %q", got, want)
	}
	if Digest(box) != Digest(CopyList(box)) {
		t.Fatalf("digest should depend only on content")
	}
	if len(Digest(box)) != 64 || strings.Trim(Digest(box), "0123456789abcdef") != "" {
		t.Fatalf("digest is not hex: %s", Digest(box))
	}
}

func TestNonDiscardable(t *testing.T) {
	if !NonDiscardable(NewChar(0, 'a', 0, 0, 0)) || !NonDiscardable(NewHList()) {
		t.Fatalf("chars and boxes are non-discardable")
	}
	if NonDiscardable(NewGlue(ZeroGlue)) || NonDiscardable(NewPenalty(0)) || NonDiscardable(&Math{}) {
		t.Fatalf("glue, penalties and math are discardable")
	}
}
