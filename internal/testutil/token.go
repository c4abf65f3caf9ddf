package testutil

// FixedRunToken generates the same run token every time.
//
// Unlike engine.FixedGenerator, which returns tokens in sequence, this
// generator always returns one token. Scenario runs that should land
// in a single stored run share it, which keeps golden stores and
// traces byte-identical.
//
// Thread-safety: stateless, safe for concurrent use.
type FixedRunToken struct {
	token string
}

// NewFixedRunToken creates a fixed run token generator. An empty token
// defaults to "test-run-default".
func NewFixedRunToken(token string) *FixedRunToken {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunToken{token: token}
}

// Generate returns the fixed run token.
// Implements engine.RunTokenGenerator.
func (g *FixedRunToken) Generate() string {
	return g.token
}
