package article

import "testing"

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	in := "Hello\t\tworld.\n\n\n\nNext  paragraph.\n   trailing spaces   "
	got := cleanText(in)

	if got == in {
		t.Fatal("expected cleanText to modify input")
	}
	for _, bad := range []string{"\t", "\n\n\n"} {
		if containsRun(got, bad) {
			t.Errorf("expected no %q left in cleaned text, got %q", bad, got)
		}
	}
}

func TestCleanTextEmptyStaysEmpty(t *testing.T) {
	if got := cleanText("   \n\t  "); got != "" {
		t.Errorf("expected whitespace-only input to clean to empty string, got %q", got)
	}
}

func containsRun(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
