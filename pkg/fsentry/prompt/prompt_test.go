package prompt

import "testing"

func TestFixedAlwaysReturnsTheSameValue(t *testing.T) {
	source := Fixed("correct horse battery staple")

	for _, label := range []string{"site keyfile", "local keyfile"} {
		value, err := source(label)
		if err != nil {
			t.Fatalf("label %q: unexpected error: %v", label, err)
		}
		if value != "correct horse battery staple" {
			t.Errorf("label %q: got %q", label, value)
		}
	}
}
