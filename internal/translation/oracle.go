package translation

import (
	"context"

	"github.com/iliyamo/movie-reviews/internal/model"
)

// Oracle translates text between two languages.  Implementations may fail
// transiently; callers do not retry.
type Oracle interface {
	Translate(ctx context.Context, text string, source, target model.Language) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, text string, source, target model.Language) (string, error)

func (f OracleFunc) Translate(ctx context.Context, text string, source, target model.Language) (string, error) {
	return f(ctx, text, source, target)
}
