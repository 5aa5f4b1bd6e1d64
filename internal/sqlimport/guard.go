package sqlimport

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// ErrRejected wraps every reason the guard refuses a statement.
var ErrRejected = errors.New("statement rejected")

// Tables a guarded statement may insert into.
var allowedTables = map[string]bool{
	"profiles":          true,
	"incidents":         true,
	"incident_details":  true,
	"inspections":       true,
	"training_sessions": true,
}

// Functions a guarded statement may call, covering both dialects' uuid
// expressions.
var allowedFunctions = map[string]bool{
	"GEN_RANDOM_UUID": true,
	"LOWER":           true,
	"UPPER":           true,
	"HEX":             true,
	"RANDOMBLOB":      true,
	"SUBSTR":          true,
	"ABS":             true,
	"RANDOM":          true,
}

var forbiddenWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"UPSERT": true, "REPLACE": true, "RETURNING": true, "WITH": true, "UNION": true,
	"INTO": true, "FROM": true, "WHERE": true, "CONFLICT": true,
	"DROP": true, "ALTER": true, "CREATE": true, "TRUNCATE": true, "RENAME": true,
	"GRANT": true, "REVOKE": true, "EXEC": true, "EXECUTE": true, "CALL": true,
	"DO": true, "COPY": true, "ATTACH": true, "DETACH": true, "PRAGMA": true,
	"VACUUM": true, "REINDEX": true, "ANALYZE": true, "SET": true, "BEGIN": true,
	"COMMIT": true, "ROLLBACK": true, "SAVEPOINT": true, "LOAD_EXTENSION": true,
}

var (
	headRE = regexp.MustCompile(`(?is)^\s*insert\s+into\s+(?:public\.)?([a-z_]+)\s*\(`)

	// The one sub-select generated SQL uses to link an incident to its contractor.
	contractorSelectRE = regexp.MustCompile(`(?is)\(\s*select\s+id\s+from\s+(?:public\.)?profiles\s+where\s+(?:company|username)\s*=\s*\?\s+limit\s+1\s*\)`)

	wordRE = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
)

// Guard screens raw INSERT statements before they are executed. A statement
// passes only if it is a single INSERT INTO a domain table, uses no other
// statement keywords outside string literals (bar the contractor
// sub-select), calls only allow-listed functions, carries no comments or
// stacked statements, and none of its string literals look like SQL
// injection. Literals are plain '...' strings without backslashes, so
// sqlite and PostgreSQL end each one where the guard does.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

func (g *Guard) Check(stmt string) error {
	skeleton, literals, err := splitLiterals(stmt)
	if err != nil {
		return reject(err.Error())
	}

	head := headRE.FindStringSubmatchIndex(skeleton)
	if head == nil {
		return reject("only INSERT INTO statements are allowed")
	}
	table := strings.ToLower(skeleton[head[2]:head[3]])
	if !allowedTables[table] {
		return reject(fmt.Sprintf("table %q is not importable", table))
	}

	body := contractorSelectRE.ReplaceAllString(skeleton[head[1]-1:], "?")
	for _, loc := range wordRE.FindAllStringIndex(body, -1) {
		word := strings.ToUpper(body[loc[0]:loc[1]])
		if forbiddenWords[word] {
			return reject(fmt.Sprintf("keyword %s is not allowed", word))
		}
		if word != "VALUES" && nextNonSpace(body, loc[1]) == '(' && !allowedFunctions[word] {
			return reject(fmt.Sprintf("function %s is not allowed", strings.ToLower(word)))
		}
	}

	for _, lit := range literals {
		if !needsScreening(lit) {
			continue
		}
		if sqli, fingerprint := libinjection.IsSQLi(lit); sqli {
			return reject(fmt.Sprintf("string literal looks like SQL injection (fingerprint %s)", string(fingerprint)))
		}
	}
	return nil
}

func reject(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

// splitLiterals replaces every '...' literal with ? and returns the literal
// contents unescaped. Comments, quoted identifiers and a second statement
// are errors.
func splitLiterals(stmt string) (string, []string, error) {
	var (
		skeleton strings.Builder
		literals []string
	)
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case c == '\'':
			// E'..', U&'..', B'..' and X'..' change how the body is read.
			if i > 0 && (isWordByte(stmt[i-1]) || stmt[i-1] == '&') {
				return "", nil, errors.New("prefixed string literals are not allowed")
			}
			var lit strings.Builder
			closed := false
			for i++; i < len(stmt); i++ {
				if stmt[i] == '\\' {
					// Escape strings and standard_conforming_strings=off end
					// the literal where this scanner would not.
					return "", nil, errors.New("backslashes are not allowed in string literals")
				}
				if stmt[i] == '\'' {
					if i+1 < len(stmt) && stmt[i+1] == '\'' {
						lit.WriteByte('\'')
						i++
						continue
					}
					closed = true
					break
				}
				lit.WriteByte(stmt[i])
			}
			if !closed {
				return "", nil, errors.New("unterminated string literal")
			}
			literals = append(literals, lit.String())
			skeleton.WriteByte('?')
		case c == '"' || c == '`':
			return "", nil, errors.New("quoted identifiers are not allowed")
		case c == '-' && i+1 < len(stmt) && stmt[i+1] == '-',
			c == '/' && i+1 < len(stmt) && stmt[i+1] == '*',
			c == '#':
			return "", nil, errors.New("comments are not allowed")
		case c == ';':
			if strings.TrimSpace(stmt[i+1:]) != "" {
				return "", nil, errors.New("stacked statements are not allowed")
			}
			return skeleton.String(), literals, nil
		case c == '\\' || c == '$':
			return "", nil, fmt.Errorf("character %q is not allowed outside string literals", c)
		default:
			skeleton.WriteByte(c)
		}
	}
	return skeleton.String(), literals, nil
}

// plainLiteralRE matches prose that libinjection has nothing to say about:
// letters, digits, spaces and punctuation that carries no SQL meaning on
// its own.
var plainLiteralRE = regexp.MustCompile(`^[\p{L}\p{N} .,:/()&+%!?@_-]*$`)

// needsScreening reports whether a literal holds anything beyond plain
// prose. Every such literal goes through libinjection.
func needsScreening(lit string) bool {
	return !plainLiteralRE.MatchString(lit) || strings.Contains(lit, "--")
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func nextNonSpace(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}
