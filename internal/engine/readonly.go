package engine

import (
	"fmt"
	"strings"
)

// ViolationError marks a generated query that failed read-only validation.
// It indicates a bug in check generation, not a property of the target
// database, so callers must surface it as a configuration error instead
// of a quiet skip.
type ViolationError struct {
	Query  string
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("query rejected by read-only validation: %s", e.Reason)
}

var allowedPrefixes = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "DESCRIBE", "DESC"}

var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "REPLACE",
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME",
	"GRANT", "REVOKE", "COMMIT", "ROLLBACK",
	"CALL", "EXEC", "EXECUTE", "SET", "USE", "COPY", "LOAD",
}

// ValidateReadOnly rejects any statement that could mutate the target.
// Every check query passes through here before execution, regardless of
// which builder produced it.
func ValidateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &ViolationError{Query: query, Reason: "empty statement"}
	}
	upper := strings.ToUpper(trimmed)
	stripped := stripLiterals(upper)
	if i := strings.IndexByte(stripped, ';'); i >= 0 && strings.TrimSpace(stripped[i+1:]) != "" {
		return &ViolationError{Query: query, Reason: "multiple statements"}
	}

	ok := false
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(upper, p+" ") || strings.HasPrefix(upper, p+"\n") || upper == p {
			ok = true
			break
		}
	}
	if !ok {
		return &ViolationError{Query: query, Reason: "statement does not start with an allowed read keyword"}
	}

	// Keyword scan runs on the statement with string literals removed so
	// that values like '%delete%' cannot trip it.
	for _, word := range tokenize(stripped) {
		for _, blocked := range blockedKeywords {
			if word == blocked {
				return &ViolationError{Query: query, Reason: fmt.Sprintf("blocked keyword %s", blocked)}
			}
		}
	}
	return nil
}

// stripLiterals blanks string literals and quoted identifiers, honoring
// doubled-quote escapes. Backtick and bracket quoting are included so a
// column named `update` or [delete] cannot trip the keyword scan.
func stripLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var closer byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if closer != 0 {
			if ch == closer {
				if i+1 < len(s) && s[i+1] == closer {
					i++
					continue
				}
				closer = 0
				b.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			closer = ch
		case '[':
			closer = ']'
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return false
		}
		return true
	})
}
