// Package pathguard validates storage keys and filenames before they reach
// an object store or a Content-Disposition header.
package pathguard

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-authgate/assetgate/internal/util"
)

// MaxKeyLength bounds storage keys; S3 allows 1024 bytes.
const MaxKeyLength = 1024

const fallbackFilename = "download"

var (
	ErrEmptyKey         = errors.New("storage key is empty")
	ErrKeyTooLong       = errors.New("storage key is too long")
	ErrAbsoluteKey      = errors.New("absolute storage keys are not allowed")
	ErrTraversal        = errors.New("directory traversal not allowed")
	ErrInvalidCharacter = errors.New("storage key contains an invalid character")
	ErrEncodedSequence  = errors.New("storage key contains an encoded path sequence")
	ErrNotCanonical     = errors.New("storage key is not in canonical form")
)

// encoded forms of '.', '/' and '\' that could be decoded downstream
var encodedSequences = []string{"%2e", "%2f", "%5c", "%00", "%25"}

// ValidateStorageKey checks that key is a relative, canonical, slash
// separated path that cannot escape the store root.
func ValidateStorageKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}

	for _, r := range key {
		if r == '\\' || r == 0 || unicode.IsControl(r) {
			return ErrInvalidCharacter
		}
	}

	lower := strings.ToLower(key)
	for _, seq := range encodedSequences {
		if strings.Contains(lower, seq) {
			return ErrEncodedSequence
		}
	}

	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) || hasDriveLetter(key) {
		return ErrAbsoluteKey
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return ErrTraversal
		}
	}

	if path.Clean(key) != key {
		return ErrNotCanonical
	}
	return nil
}

func hasDriveLetter(key string) bool {
	return len(key) >= 2 && key[1] == ':' &&
		((key[0] >= 'a' && key[0] <= 'z') || (key[0] >= 'A' && key[0] <= 'Z'))
}

// SanitizeFilename reduces name to a safe basename for a download header.
// Control characters, path separators and characters reserved on common
// filesystems are dropped, and leading dots are stripped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
		case strings.ContainsRune(`<>:"/\|?*;`, r):
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	cleaned = strings.TrimLeft(cleaned, ".")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return fallbackFilename
	}
	if len(cleaned) > 255 {
		ext := path.Ext(cleaned)
		if len(ext) > 16 {
			ext = ""
		}
		cleaned = util.TruncateUTF8(cleaned, 255-len(ext)) + ext
	}
	return cleaned
}

// ContentDisposition builds an attachment header for name. The quoted
// filename is an ASCII fallback; names with other characters also carry
// an RFC 5987 filename* parameter.
func ContentDisposition(name string) string {
	name = SanitizeFilename(name)

	ascii := true
	var fallback strings.Builder
	for _, r := range name {
		if r > unicode.MaxASCII {
			ascii = false
			fallback.WriteByte('_')
			continue
		}
		fallback.WriteRune(r)
	}

	header := `attachment; filename="` + fallback.String() + `"`
	if !ascii {
		header += "; filename*=UTF-8''" + encodeExtValue(name)
	}
	return header
}

// encodeExtValue percent-encodes every byte outside the RFC 5987 attr-char set
func encodeExtValue(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := range len(s) {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

// IsWithinBase reports whether candidate, once resolved, lies inside base.
func IsWithinBase(base, candidate string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absBase, absCandidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
