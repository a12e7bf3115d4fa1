// Package redact strips sensitive information from strings before they are
// logged or surfaced in error responses: credentials, connection strings,
// LLM API keys, tokens, uploaded-file paths, SQL values, and identifiers.
package redact

import "regexp"

// Placeholders substituted for matched sensitive content.
const (
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedUUIDPlaceholder       = "[REDACTED_UUID]"
)

// rule pairs a pattern with its replacement. Rules run in order; earlier
// rules may consume text that later rules would otherwise match, so
// credential and SQL rules come first.
type rule struct {
	re          *regexp.Regexp
	replacement string
}

var rules = []rule{
	// Connection strings: scheme plus embedded credentials up to the @.
	{regexp.MustCompile(`(?i)(postgres|mysql|mongodb|db|database|connection)://[^@]+@`),
		RedactedCredentialPlaceholder},

	// SQL statements: keep the statement shape, drop the values. Card and
	// session queries carry uploaded content and user identifiers.
	{regexp.MustCompile(`(?i)(INSERT\s+INTO\s+\w+\s*(?:\([^)]*\))?\s*VALUES)\s*[^\n]*`),
		"$1 [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)(UPDATE\s+\w+\s+SET)\s+[^\n]*`),
		"$1 [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)(DELETE\s+FROM\s+\w+)\s+WHERE\s+[^\n]*`),
		"$1 [SQL_WHERE_REDACTED]"},
	{regexp.MustCompile(`(?i)SELECT\s[\s\S]*?FROM\s[^\n]*`),
		"SELECT FROM... [SQL_VALUES_REDACTED]"},

	// Passwords and key material. The key rule also catches Gemini and
	// OpenAI API keys, since both appear after a key/token/secret label in
	// config errors.
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder},
	{regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`),
		RedactedKeyPlaceholder},

	// Bare JWTs (three base64url segments).
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		"[REDACTED_JWT]"},

	// Entity identifiers. Session, card, and suggestion IDs are UUIDs and
	// leak resource existence when echoed in errors.
	{regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`),
		RedactedUUIDPlaceholder},

	// Filesystem paths, including the media directory of stored uploads.
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},

	// Stack traces.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]"},

	// Account emails, parser positions, hosts, filesystem errors.
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
		"[REDACTED_EMAIL]"},
	{regexp.MustCompile(`(?:at )?line ?\d+`), "[REDACTED_LINE_NUMBER]"},
	{regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`),
		"[REDACTED_SYNTAX_ERROR]"},
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`),
		"[REDACTED_HOST]"},
	{regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`),
		"[REDACTED_FILE_ERROR]"},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
