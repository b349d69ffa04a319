package classify

import (
	"reflect"
	"testing"
)

func testClassifier() *Classifier {
	return New(map[string][]string{
		"Exercise": {"gym", "run", "yoga"},
		"Work":     {"meeting", "code", "review"},
		"Chores":   {"dishes", "laundry"},
	})
}

func TestAssign(t *testing.T) {
	c := testClassifier()
	cases := []struct {
		activity string
		want     string
	}{
		{"Morning gym session", "Exercise"},
		{"CODE REVIEW", "Work"},
		{"dishes after dinner", "Chores"},
		{"staring at the wall", "Other"},
		{"", "Other"},
	}
	for _, tc := range cases {
		if got := c.Assign(tc.activity); got != tc.want {
			t.Errorf("Assign(%q) = %q, want %q", tc.activity, got, tc.want)
		}
	}
}

func TestAssignDeterministicOnOverlap(t *testing.T) {
	c := New(map[string][]string{
		"Beta":  {"walk"},
		"Alpha": {"walk"},
	})
	for i := 0; i < 10; i++ {
		if got := c.Assign("evening walk"); got != "Alpha" {
			t.Fatalf("overlapping keyword must resolve to the lexically first category, got %q", got)
		}
	}
}

func TestEmptyKeywordsDropped(t *testing.T) {
	c := New(map[string][]string{
		"Empty":    {"", "  "},
		"Exercise": {"gym"},
	})
	if got := c.Categories(); !reflect.DeepEqual(got, []string{"Exercise"}) {
		t.Fatalf("categories = %v", got)
	}
}

func TestNilMapping(t *testing.T) {
	c := New(nil)
	if got := c.Assign("anything"); got != Fallback {
		t.Fatalf("got %q", got)
	}
}
