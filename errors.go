package mathpage

import (
	"errors"

	"github.com/alnah/go-mathpage/internal/mathjax"
)

// Sentinel errors for library operations.
var (
	ErrNilEngine       = errors.New("typesetting engine cannot be nil")
	ErrConverterClosed = errors.New("converter is closed")
	ErrPoolClosed      = errors.New("engine pool is closed")
	ErrEmptyOutputKind = errors.New("output kind cannot be empty")

	// Engine errors, shared with the MathJax engine so errors.Is works
	// across the package boundary.
	ErrBrowserConnect = mathjax.ErrBrowserConnect
	ErrPageCreate     = mathjax.ErrPageCreate
	ErrMathJaxLoad    = mathjax.ErrLoad
	ErrTypeset        = mathjax.ErrTypeset

	// Serialization errors.
	ErrParseHTML  = errors.New("failed to parse HTML")
	ErrRenderHTML = errors.New("failed to render HTML")
	ErrMarkdown   = errors.New("markdown conversion failed")
)
