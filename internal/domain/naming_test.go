package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		input    string
		want     string
		testName string
	}{
		{"abc12345.md", "abc12345.md", "clean name untouched"},
		{"we?ird*na:me.md", "we_ird_na_me.md", "unsafe characters replaced"},
		{"con.md", "safe_con.md", "reserved stem prefixed"},
		{"LPT1.md", "safe_LPT1.md", "reserved stem case-insensitive"},
	}

	for _, tc := range cases {
		got, err := SanitizeFileName(tc.input)
		if err != nil {
			t.Errorf("%s: SanitizeFileName(%q) returned error: %v", tc.testName, tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: SanitizeFileName(%q) = %q, want %q", tc.testName, tc.input, got, tc.want)
		}
	}
}

func TestSanitizeFileNameTraversal(t *testing.T) {
	for _, input := range []string{"../etc/passwd", "a/b.md", `a\b.md`, "..", "x..y.md"} {
		if _, err := SanitizeFileName(input); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SanitizeFileName(%q) error = %v, want ErrPathTraversal", input, err)
		}
	}

	if _, err := SanitizeFileName(""); err == nil {
		t.Fatal("SanitizeFileName(\"\") should fail")
	}
}

func TestSanitizeFileNameLength(t *testing.T) {
	long := strings.Repeat("x", 300) + ".md"
	got, err := SanitizeFileName(long)
	if err != nil {
		t.Fatalf("SanitizeFileName returned error: %v", err)
	}
	if len(got) > maxFileNameLength {
		t.Fatalf("SanitizeFileName produced %d chars, want at most %d", len(got), maxFileNameLength)
	}
	if !strings.HasSuffix(got, ".md") {
		t.Fatalf("SanitizeFileName dropped the extension: %q", got)
	}
}

func TestValidatePackageName(t *testing.T) {
	valid := []string{"my-docs", "docs_v2", "a", "release.2024", strings.Repeat("a", 255)}
	for _, name := range valid {
		if err := ValidatePackageName(name); err != nil {
			t.Errorf("ValidatePackageName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []struct {
		name     string
		testName string
	}{
		{"", "empty"},
		{strings.Repeat("a", 256), "too long"},
		{"../escape", "traversal"},
		{"/absolute", "absolute path"},
		{`\windows`, "backslash prefix"},
		{"has space", "disallowed character"},
		{"con", "reserved name"},
		{"COM3", "reserved name upper"},
		{".hidden", "leading dot"},
		{"trailing.", "trailing dot"},
	}
	for _, tc := range invalid {
		if err := ValidatePackageName(tc.name); err == nil {
			t.Errorf("%s: ValidatePackageName(%q) = nil, want error", tc.testName, tc.name)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("abc12345"); got != "abc12345.md" {
		t.Fatalf("FileName returned %q, want abc12345.md", got)
	}
}
