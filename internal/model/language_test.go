package model

import "testing"

func TestParseLanguage(t *testing.T) {
	for _, code := range []string{"en", "fr", "es", "de", "zh", "ja", "ko", "it", "pt", "ru", " fr "} {
		if _, ok := ParseLanguage(code); !ok {
			t.Fatalf("expected %q to be supported", code)
		}
	}
	for _, code := range []string{"", "xx", "FR", "en-US", "pl"} {
		if _, ok := ParseLanguage(code); ok {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}

func TestSupportedLanguagesReturnsCopy(t *testing.T) {
	langs := SupportedLanguages()
	if len(langs) != 10 {
		t.Fatalf("expected 10 languages, got %d", len(langs))
	}
	langs[0] = "xx"
	if _, ok := ParseLanguage("en"); !ok {
		t.Fatal("mutating the returned slice must not change the supported set")
	}
}

func TestReviewFilterMatches(t *testing.T) {
	r := Review{MovieID: "m1", ReviewID: "r1", ReviewerID: "u1"}
	cases := []struct {
		name   string
		filter ReviewFilter
		want   bool
	}{
		{"empty", ReviewFilter{}, true},
		{"review id", ReviewFilter{ReviewID: "r1"}, true},
		{"reviewer", ReviewFilter{ReviewerID: "u1"}, true},
		{"both", ReviewFilter{ReviewID: "r1", ReviewerID: "u1"}, true},
		{"other review", ReviewFilter{ReviewID: "r2"}, false},
		{"other reviewer", ReviewFilter{ReviewID: "r1", ReviewerID: "u2"}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(r); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("  \t\n") {
		t.Fatal("whitespace should be blank")
	}
	if IsBlank(" Great film ") {
		t.Fatal("text should not be blank")
	}
}
