package propvector

import "testing"

// TestVectorLaws verifies testable property 3.
func TestVectorLaws(t *testing.T) {
	a := New(40)
	a.Add(3)
	a.Add(10)
	a.Add(39)

	selfUnion := a.Clone()
	selfUnion.Union(a)
	if !selfUnion.Equal(a) {
		t.Error("v | v != v")
	}

	selfIntersect := a.Clone()
	selfIntersect.Intersect(a)
	if !selfIntersect.Equal(a) {
		t.Error("v & v != v")
	}

	selfXor := a.Clone()
	selfXor.Xor(a)
	if !selfXor.IsEmpty() {
		t.Error("v ^ v != empty")
	}

	b := New(40)
	b.Add(10)
	b.Add(20)

	union := a.Clone()
	union.Union(b)
	if !union.ContainsAll(a) {
		t.Error("(a | b) does not contain a")
	}

	intersect := a.Clone()
	intersect.Intersect(b)
	if !a.ContainsAll(intersect) {
		t.Error("(a & b) is not contained in a")
	}
}

func TestResizePreservesMembership(t *testing.T) {
	v := New(10)
	v.Add(2)
	v.Add(7)

	v.Resize(100)
	if !v.Contains(2) || !v.Contains(7) {
		t.Error("resize did not preserve membership for indices below old size")
	}
	if v.Contains(50) {
		t.Error("resize incorrectly set a bit beyond the old size")
	}
}

func TestResizeZeroExtends(t *testing.T) {
	v := New(5)
	v.Resize(64)
	for i := 5; i < 64; i++ {
		if v.Contains(i) {
			t.Fatalf("bit %d unexpectedly set after zero-extending resize", i)
		}
	}
}

func TestAddGrowsVector(t *testing.T) {
	v := New(0)
	v.Add(100)
	if v.Size() < 101 {
		t.Errorf("Add did not grow vector to cover index 100, size=%d", v.Size())
	}
	if !v.Contains(100) {
		t.Error("Add did not set the requested bit")
	}
}
