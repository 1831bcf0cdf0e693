package propvalue

import "testing"

// TestUndefinedComparison verifies testable property 4.
func TestUndefinedComparison(t *testing.T) {
	concretes := []Value{
		Int32(5),
		Int64(5),
		Uint64(5),
		String("x"),
		FileTypeValue(FileTypeDir),
		Hash(HashMD5, []byte{1, 2, 3}),
	}

	for _, p := range concretes {
		if got := Undefined().Compare(p, OpEQ); got != False {
			t.Errorf("Undefined.cmp(%v, EQ) = %v, want False", p, got)
		}
		if got := Undefined().Compare(p, OpNE); got != True {
			t.Errorf("Undefined.cmp(%v, NE) = %v, want True", p, got)
		}
		for _, op := range []CmpOp{OpLT, OpGT, OpLE, OpGE} {
			if got := Undefined().Compare(p, op); got != WrongType {
				t.Errorf("Undefined.cmp(%v, %v) = %v, want WrongType", p, op, got)
			}
		}
	}
}

// TestGrowingFileContract verifies testable property 5.
func TestGrowingFileContract(t *testing.T) {
	cases := []struct {
		old, new int64
		wantEQ   CmpResult
	}{
		{10, 20, True},
		{20, 20, True},
		{20, 10, False},
	}
	for _, c := range cases {
		old := GrowingFile(c.old)
		newVal := GrowingFile(c.new)
		if got := old.Compare(newVal, OpEQ); got != c.wantEQ {
			t.Errorf("GrowingFile(%d).cmp(GrowingFile(%d), EQ) = %v, want %v", c.old, c.new, got, c.wantEQ)
		}
	}

	// Other operators are unchanged by the GrowingFile reinterpretation.
	if GrowingFile(10).Compare(GrowingFile(20), OpLT) != True {
		t.Error("GrowingFile LT not preserved")
	}
	if GrowingFile(20).Compare(GrowingFile(10), OpGT) != True {
		t.Error("GrowingFile GT not preserved")
	}
}

func TestWrongTypeAcrossKinds(t *testing.T) {
	if String("x").Compare(Int32(1), OpEQ) != WrongType {
		t.Error("expected WrongType comparing String to Int32")
	}
}

func TestHashConstantTimeEquality(t *testing.T) {
	a := Hash(HashSHA1, []byte{1, 2, 3, 4})
	b := Hash(HashSHA1, []byte{1, 2, 3, 4})
	c := Hash(HashSHA1, []byte{1, 2, 3, 5})

	if a.Compare(b, OpEQ) != True {
		t.Error("identical hashes did not compare equal")
	}
	if a.Compare(c, OpEQ) != False {
		t.Error("differing hashes compared equal")
	}
	if a.Compare(b, OpLT) != Unsupported {
		t.Error("expected Unsupported for ordering comparison of hashes")
	}
}

func TestFileTypeOrderingUnsupported(t *testing.T) {
	if FileTypeValue(FileTypeDir).Compare(FileTypeValue(FileTypeFile), OpLT) != Unsupported {
		t.Error("expected Unsupported for ordering comparison of file types")
	}
	if FileTypeValue(FileTypeDir).Compare(FileTypeValue(FileTypeDir), OpEQ) != True {
		t.Error("expected equal file types to compare True")
	}
}
