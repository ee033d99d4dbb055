// Package token implements the dotted tracking-token codec that stitches
// chained invocations together. A token reads "source.correlationId" or
// "source.correlationId.jobId": the source names the dispatcher deployment
// that started the chain, the correlation id is a UUID identifying the whole
// chain, and the optional job id names the unit of work that last produced a
// mutation. Tokens round-trip through untyped text columns, so Parse is
// total and segments must not themselves contain dots.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformed is returned by Parse for any input that is not a valid token.
var ErrMalformed = errors.New("token: malformed tracking token")

// Token is the parsed form of a tracking token.
type Token struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id"`
	JobID         string `json:"job_id,omitempty"`
}

// New creates a token for the given source. An empty correlationID mints a
// fresh UUID; a caller continuing an existing chain passes the prior id
// through unchanged. The correlation id is immutable once a chain starts.
func New(source, correlationID string) Token {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return Token{Source: source, CorrelationID: correlationID}
}

// Parse decodes a dotted tracking token. It is total: malformed input of any
// shape returns an error wrapping ErrMalformed, never a panic. A token must
// have exactly two or three non-empty segments and a UUID correlation id.
func Parse(s string) (Token, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	for _, p := range parts {
		if p == "" {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return Token{}, fmt.Errorf("%w: %q: correlation id is not a uuid", ErrMalformed, s)
	}

	t := Token{Source: parts[0], CorrelationID: parts[1]}
	if len(parts) == 3 {
		t.JobID = parts[2]
	}
	return t, nil
}

// IsValid reports whether s parses as a tracking token. It agrees with Parse.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String encodes the token back to its dotted wire form.
func (t Token) String() string {
	if t.JobID != "" {
		return t.Source + "." + t.CorrelationID + "." + t.JobID
	}
	return t.Source + "." + t.CorrelationID
}

// IsZero reports whether the token is the zero value.
func (t Token) IsZero() bool {
	return t == Token{}
}

// WithJobID returns a copy of the token carrying the given job id. The
// correlation id is unchanged, so the chain identity survives the derivation.
func (t Token) WithJobID(jobID string) Token {
	t.JobID = jobID
	return t
}

// WithSource returns a copy of the token attributed to a different source.
func (t Token) WithSource(source string) Token {
	t.Source = source
	return t
}
