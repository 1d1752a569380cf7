// Package masking redacts secret- and PII-shaped substrings out of text
// before it leaves the process in an LLM prompt, keeping raw credentials
// and personal identifiers that show up inside a transcript from
// reaching a third-party model call.
package masking

import "log/slog"

// Service applies built-in regex-based redaction to text. Created once at
// startup (singleton), thread-safe and stateless aside from its compiled
// patterns.
type Service struct {
	patterns []*CompiledPattern
}

// NewService compiles every built-in pattern eagerly. Invalid patterns are
// logged and skipped rather than failing startup.
func NewService() *Service {
	s := &Service{patterns: compileBuiltinPatterns()}
	slog.Info("masking service initialized", "compiled_patterns", len(s.patterns))
	return s
}

// Mask sweeps every built-in pattern over content and returns the redacted
// result. Safe to call on empty input.
func (s *Service) Mask(content string) string {
	if content == "" {
		return content
	}
	masked := content
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
