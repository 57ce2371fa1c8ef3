package logger

import (
	"bytes"
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// rule replaces the secret part of a match; the capture group named "keep", when present,
// survives so that log lines still show which field was hidden.
type rule struct {
	re   *regexp.Regexp
	keep int
}

// Redactor masks provider credentials before log lines reach a sink.
type Redactor struct {
	rules []rule
}

// NewRedactor creates a redactor for the credentials toolflow handles: OpenAI and Anthropic
// keys, Azure api-key headers, bearer tokens, and secrets passed as config values or URL
// query parameters to HttpGet.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, pattern := range []string{
		`\bsk-(?:ant-|proj-)?[A-Za-z0-9_-]{16,}`,
		`(?P<keep>(?i:bearer)\s+)[A-Za-z0-9._~+/=-]+`,
		`(?P<keep>(?i:api[-_]?key)\\?"?\s*[:=]\s*\\?"?)[^\s",&\\]+`,
		`(?P<keep>[?&](?i:key|token|access_token|sig|signature)=)[^&\s"]+`,
		`(?P<keep>(?i:password|secret)\\?"?\s*[:=]\s*\\?"?)[^\s",\\]+`,
	} {
		_ = r.AddPattern(pattern)
	}
	return r
}

// AddPattern registers an extra pattern. A group named "keep" is preserved in the output.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{re: re, keep: re.SubexpIndex("keep")})
	return nil
}

// Redact returns s with every secret replaced by [REDACTED].
func (r *Redactor) Redact(s string) string {
	return string(r.redact([]byte(s)))
}

func (r *Redactor) redact(b []byte) []byte {
	for _, rl := range r.rules {
		if rl.keep < 0 {
			b = rl.re.ReplaceAllLiteral(b, []byte(redacted))
			continue
		}
		b = rl.re.ReplaceAllFunc(b, func(match []byte) []byte {
			sub := rl.re.FindSubmatch(match)
			out := append([]byte{}, sub[rl.keep]...)
			return append(out, redacted...)
		})
	}
	return b
}

// Wrap returns a writer that redacts each write before passing it to w. Zerolog emits one
// event per Write, so secrets never straddle two calls.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{next: w, redactor: r}
}

type redactingWriter struct {
	next     io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers do not treat a shorter redacted line as a
// short write.
func (w *redactingWriter) Write(p []byte) (int, error) {
	clean := w.redactor.redact(bytes.Clone(p))
	if _, err := w.next.Write(clean); err != nil {
		return 0, err
	}
	return len(p), nil
}
