// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// PIIPriority is the redaction processor's fixed chain position, per §4.F.
const PIIPriority = 50

// RedactionMode selects how a detected PII span is rewritten.
type RedactionMode string

const (
	// ModeMask preserves the first/last 2 code points and replaces the
	// middle with asterisks (or all asterisks when len <= 4).
	ModeMask RedactionMode = "mask"
	// ModeRemove replaces the span with a fixed placeholder.
	ModeRemove RedactionMode = "remove"
	// ModeHash replaces the span with a hex SHA-256 fingerprint.
	ModeHash RedactionMode = "hash"
	// ModeReplace replaces the span with a caller-supplied string.
	ModeReplace RedactionMode = "replace"
)

// builtinPattern is one of the five categories §4.F names: a regex that
// finds candidate matches plus a cheap structural validator that rejects
// shapes the regex over-matches (an IPv4 octet over 255, a card number that
// fails Luhn).
type builtinPattern struct {
	name     string
	re       *regexp.Regexp
	validate func(match string) bool
}

var builtinPatterns = []builtinPattern{
	{
		name:     "email",
		re:       regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`),
		validate: validateEmail,
	},
	{
		name:     "phone",
		re:       regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(?[0-9]{3}\)?[-.\s]?)?[0-9]{3}[-.\s]?[0-9]{4}\b|\+[0-9]{1,3}[-.\s]?[0-9]{6,14}\b`),
		validate: validatePhone,
	},
	{
		// id_card covers the shape national ID / passport numbers share:
		// one or two leading letters followed by six to nine digits.
		name:     "id_card",
		re:       regexp.MustCompile(`\b[A-Z]{1,2}[0-9]{6,9}\b`),
		validate: validateIDCard,
	},
	{
		name: "bank_card",
		// Visa, MasterCard, Amex, Discover, Diners, JCB, plus a generic
		// 16-digit grouped fallback; validateBankCard runs Luhn on whatever
		// matches.
		re:       regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12}|3(?:0[0-5]|[68][0-9])[0-9]{11}|(?:2131|1800|35\d{3})\d{11})\b|\b(?:\d{4})[- ]?(?:\d{4})[- ]?(?:\d{4})[- ]?(?:\d{4})\b`),
		validate: validateBankCard,
	},
	{
		name:     "ipv4",
		re:       regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		validate: validateIPv4,
	},
}

// CustomPattern is a caller-supplied regex category.
type CustomPattern struct {
	Name    string
	Pattern string
}

var customPatternCache sync.Map // string -> *regexp.Regexp (process-wide memoization)

func compileCustomPattern(pattern string) *regexp.Regexp {
	if cached, ok := customPatternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Compilation failures for custom patterns are skipped silently, per §4.F.
		customPatternCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	customPatternCache.Store(pattern, re)
	return re
}

// PIIProcessor redacts email/phone/id-card/bank-card/IPv4 PII plus any
// caller-supplied custom patterns, applied to input in Pre and output in
// Post.
type PIIProcessor struct {
	BaseProcessor
	mode    RedactionMode
	replace string
	custom  []CustomPattern
}

// NewPIIProcessor builds the redaction processor. mode selects the rewrite
// strategy; replaceWith is only used for ModeReplace.
func NewPIIProcessor(mode RedactionMode, replaceWith string, custom []CustomPattern) *PIIProcessor {
	return &PIIProcessor{
		BaseProcessor: BaseProcessor{ProcName: "pii_redaction", ProcPriority: PIIPriority},
		mode:          mode,
		replace:       replaceWith,
		custom:        custom,
	}
}

type span struct {
	start, end int
}

func (p *PIIProcessor) findSpans(text string) []span {
	var spans []span
	for _, bp := range builtinPatterns {
		for _, loc := range bp.re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if bp.validate != nil && !bp.validate(match) {
				continue
			}
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	for _, cp := range p.custom {
		re := compileCustomPattern(cp.Pattern)
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	return mergeSpans(spans)
}

// mergeSpans sorts by start and collapses overlapping/adjacent ranges so
// redaction never double-processes a character.
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// redact rewrites every detected span in text, left to right, and reports
// whether any change occurred.
func (p *PIIProcessor) redact(text string) (string, bool) {
	spans := p.findSpans(text)
	if len(spans) == 0 {
		return text, false
	}

	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		if s.start < cursor || s.start > len(text) || s.end > len(text) {
			continue
		}
		b.WriteString(text[cursor:s.start])
		b.WriteString(p.replacement(text[s.start:s.end]))
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String(), true
}

func (p *PIIProcessor) replacement(match string) string {
	switch p.mode {
	case ModeRemove:
		return "[REDACTED]"
	case ModeHash:
		sum := sha256.Sum256([]byte(match))
		return hex.EncodeToString(sum[:])
	case ModeReplace:
		return p.replace
	case ModeMask:
		return maskCodePoints(match)
	default:
		return maskCodePoints(match)
	}
}

// maskCodePoints keeps the first/last 2 code points and replaces the middle
// with asterisks; strings of 4 or fewer code points become all asterisks.
func maskCodePoints(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	runes := []rune(s)
	return string(runes[:2]) + "****" + string(runes[n-2:])
}

func (p *PIIProcessor) Pre(_ context.Context, pc *ProcessingContext) error {
	redacted, changed := p.redact(pc.ProcessedInput)
	pc.ProcessedInput = redacted
	if changed {
		pc.Metadata["pii_redacted_input"] = true
	}
	return nil
}

func (p *PIIProcessor) Post(_ context.Context, pc *ProcessingContext) error {
	redacted, changed := p.redact(pc.ProcessedOutput)
	pc.ProcessedOutput = redacted
	if changed {
		pc.Metadata["pii_redacted_output"] = true
	}
	return nil
}

// =============================================================================
// Validators — cheap structural checks that reject regex over-matches.
// =============================================================================

func validateEmail(match string) bool {
	atIndex := strings.LastIndex(match, "@")
	if atIndex < 1 || atIndex >= len(match)-4 {
		return false
	}
	domain := match[atIndex+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	lastDot := strings.LastIndex(domain, ".")
	if len(domain)-lastDot-1 < 2 {
		return false
	}
	return !strings.Contains(match, "..") && !strings.HasPrefix(match, ".")
}

func validatePhone(match string) bool {
	digits := digitsOnly(match)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	return !isRepeatedDigits(digits)
}

func validateIDCard(match string) bool {
	letterCount, digitCount := 0, 0
	for i, ch := range match {
		switch {
		case ch >= 'A' && ch <= 'Z':
			if i > 1 {
				return false
			}
			letterCount++
		case ch >= '0' && ch <= '9':
			digitCount++
		default:
			return false
		}
	}
	return letterCount >= 1 && letterCount <= 2 && digitCount >= 6
}

func validateBankCard(match string) bool {
	digits := digitsOnly(match)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhnCheck(digits)
}

// luhnCheck performs the Luhn algorithm check.
func luhnCheck(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if alternate {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alternate = !alternate
	}
	return sum%10 == 0
}

func validateIPv4(match string) bool {
	parts := strings.Split(match, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isRepeatedDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != first {
			return false
		}
	}
	return true
}
