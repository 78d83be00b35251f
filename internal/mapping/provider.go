package mapping

import "context"

// Provider produces mapping text for a set of raw headers. The text is then
// run through the Parser; providers are free-text producers, never structured
// mapping sources, so the parsing contract stays in one place.
type Provider interface {
	MappingText(ctx context.Context, headers []string) (string, error)
}
