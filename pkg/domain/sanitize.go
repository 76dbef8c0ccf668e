package domain

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxRationaleSize is 4KB (conservative default).
	DefaultMaxRationaleSize = 4096
	// MaxLabelSize caps option labels, which are single-line by contract.
	MaxLabelSize = 1024
	// EnvMaxRationaleSize is the environment variable to override the default.
	EnvMaxRationaleSize = "PLAYBOOK_MAX_RATIONALE_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// SanitizeRationale cleans a free-text rationale by enforcing size limits,
// validating UTF-8, and stripping dangerous control characters. Rationales
// are audit content, so oversized input is rejected rather than truncated.
func SanitizeRationale(input string) (string, error) {
	limit := maxRationaleSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	cleaned := stripControl(input, true)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	return cleaned, nil
}

// SanitizeLabel cleans an option label: same rules as rationales except the
// size cap is tighter and no line breaks survive.
func SanitizeLabel(input string) (string, error) {
	if len(input) > MaxLabelSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), MaxLabelSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	cleaned := strings.TrimSpace(stripControl(input, false))
	if cleaned == "" {
		return "", ErrEmptyInput
	}
	return cleaned, nil
}

// stripControl removes control characters. With keepBreaks, newline, tab and
// carriage return survive; ANSI escapes, NULL, BEL and friends never do,
// preventing log poisoning and terminal corruption.
func stripControl(input string, keepBreaks bool) string {
	safe := func(r rune) bool {
		if !unicode.IsControl(r) {
			return true
		}
		return keepBreaks && (r == '\n' || r == '\t' || r == '\r')
	}

	// Fast path: nothing to strip.
	clean := true
	for _, r := range input {
		if !safe(r) {
			clean = false
			break
		}
	}
	if clean {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if safe(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func maxRationaleSize() int {
	if val := os.Getenv(EnvMaxRationaleSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxRationaleSize
}
