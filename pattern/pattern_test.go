package pattern

import "testing"

func TestCompile_Kinds(t *testing.T) {
	tests := []struct {
		glob string
		want kind
	}{
		{"user:1:profile", kindExact},
		{"user:1:*", kindContains},
		{"*", kindContains},
		{"*:profile", kindContains},
		{"*user:1*", kindContains},
		{"user:*:jobs", kindRegex},
		{"user:*:jobs:*", kindRegex},
		{"", kindExact},
	}
	for _, tt := range tests {
		if got := Compile(tt.glob).kind; got != tt.want {
			t.Errorf("Compile(%q).kind = %d, want %d", tt.glob, got, tt.want)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		glob string
		key  string
		want bool
	}{
		// Exact: a literal never matches a longer or shorter key.
		{"user:1:profile", "user:1:profile", true},
		{"user:1:profile", "user:1:profile:v2", false},
		{"user:1", "user:1:profile", false},

		// Single literal run: matches anywhere in the key.
		{"user:1:*", "user:1:profile", true},
		{"user:1:*", "user:1:jobs", true},
		{"user:1:*", "user:2:profile", false},
		{"user:1:*", "xuser:1:profile", true},
		{"*:profile", "user:2:profile", true},
		{"*:profile", "user:1:profile:draft", true},
		{"*:profile", "user:2:jobs", false},
		{"*", "anything", true},
		{"*", "", true},

		// Regex: unanchored, wildcard spans any run including empty.
		{"user:*:jobs", "user:42:jobs", true},
		{"user:*:jobs", "user::jobs", true},
		{"user:*:jobs", "olduser:1:jobs", true},
		{"user:*:jobs", "user:1:jobs:archived", true},
		{"user:*:jobs", "user:1:profile", false},
		{"user:*:jobs", "jobs:user:1", false},
		{"dash*board*", "dashboard", true},

		// Regex metacharacters are literal.
		{"stats.v1.*", "stats.v1.daily", true},
		{"stats.v1.*", "statsXv1Xdaily", false},
		{"a+b*c", "a+bXc", true},
		{"(x)*", "(x)y", true},
	}
	for _, tt := range tests {
		if got := Compile(tt.glob).Match(tt.key); got != tt.want {
			t.Errorf("Compile(%q).Match(%q) = %v, want %v", tt.glob, tt.key, got, tt.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	if k, ok := Compile("a:b").Literal(); !ok || k != "a:b" {
		t.Fatalf("Literal() = (%q, %v), want (%q, true)", k, ok, "a:b")
	}
	if _, ok := Compile("a:*").Literal(); ok {
		t.Fatal("wildcard pattern reported as literal")
	}
}

func TestString(t *testing.T) {
	if s := Compile("user:*:jobs").String(); s != "user:*:jobs" {
		t.Fatalf("String() = %q", s)
	}
}
