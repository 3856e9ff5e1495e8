package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const maxFileNameLength = 255

// Reserved device names on Windows, blocked regardless of extension.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

var (
	packageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	unsafeFileChars    = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

var ErrPathTraversal = errors.New("path traversal detected")

// FileName builds the content file name for a hash ID.
func FileName(hashID string) string {
	name, err := SanitizeFileName(hashID + ".md")
	if err != nil {
		// Hash IDs are hex, the sanitizer cannot reject them.
		return hashID + ".md"
	}
	return name
}

// SanitizeFileName rejects traversal outright and rewrites anything the
// usual filesystems would choke on. Never returns an empty name.
func SanitizeFileName(name string) (string, error) {
	if name == "" {
		return "", errors.New("filename cannot be empty")
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", ErrPathTraversal
	}

	name = unsafeFileChars.ReplaceAllString(name, "_")

	stem := strings.ToLower(strings.SplitN(name, ".", 2)[0])
	if _, reserved := reservedNames[stem]; reserved {
		name = "safe_" + name
	}

	if len(name) > maxFileNameLength {
		if dot := strings.LastIndex(name, "."); dot > 0 {
			ext := name[dot+1:]
			keep := maxFileNameLength - len(ext) - 1
			if keep < 0 {
				keep = 0
			}
			name = name[:keep] + "." + ext
		} else {
			name = name[:maxFileNameLength]
		}
	}

	if name == "" || name == "." {
		name = "sanitized_file"
	}

	return name, nil
}

// ValidatePackageName enforces the rules for package directory names:
// 1-255 chars of [a-zA-Z0-9._-], no traversal, no reserved device names,
// no leading or trailing dot.
func ValidatePackageName(name string) error {
	if name == "" {
		return errors.New("package name cannot be empty")
	}
	if len(name) > maxFileNameLength {
		return fmt.Errorf("package name exceeds %d characters", maxFileNameLength)
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return ErrPathTraversal
	}
	if !packageNamePattern.MatchString(name) {
		return errors.New("package name may only contain alphanumerics, hyphens, underscores, and dots")
	}
	if _, reserved := reservedNames[strings.ToLower(name)]; reserved {
		return fmt.Errorf("package name %q is reserved", name)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return errors.New("package name cannot start or end with a dot")
	}
	return nil
}
