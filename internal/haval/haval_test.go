package haval

import "testing"

func sum(data []byte) []byte {
	h := New()
	h.Write(data)
	return h.Sum(nil)
}

func TestSizeAndDeterminism(t *testing.T) {
	a := sum([]byte("the quick brown fox"))
	if len(a) != Size {
		t.Fatalf("digest length = %d, want %d", len(a), Size)
	}
	b := sum([]byte("the quick brown fox"))
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("hashing the same input twice produced different digests")
		}
	}
}

func TestDiffersOnChange(t *testing.T) {
	a := sum([]byte("hello\nwor\n"))
	b := sum([]byte("hello\nworx"))
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("differing inputs produced identical digests")
	}
}

func TestMultiBlockWriteMatchesSingleWrite(t *testing.T) {
	data := make([]byte, BlockSize*3+17)
	for i := range data {
		data[i] = byte(i)
	}

	h1 := New()
	h1.Write(data)
	one := h1.Sum(nil)

	h2 := New()
	h2.Write(data[:50])
	h2.Write(data[50:200])
	h2.Write(data[200:])
	chunked := h2.Sum(nil)

	for i := range one {
		if one[i] != chunked[i] {
			t.Fatal("chunked writes produced a different digest than a single write")
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if len(sum(nil)) != Size {
		t.Fatal("empty input should still produce a full-size digest")
	}
}
