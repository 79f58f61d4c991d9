package compiler

import (
	"errors"

	"github.com/Mootikins/crucible-sub016/internal/backend"
	"github.com/Mootikins/crucible-sub016/internal/syntax"
)

// Kind classifies a Compile failure.
type Kind string

const (
	KindNone         Kind = ""
	KindSyntax       Kind = "syntax"
	KindUnrecognized Kind = "unrecognized"
	KindUnsupported  Kind = "unsupported"
	KindRender       Kind = "render"
	KindOther        Kind = "other"
)

// KindOf reports which kind of failure err is. A nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		synErr   *syntax.SyntaxError
		unrecErr *syntax.UnrecognizedQueryError
		unsupErr *backend.UnsupportedFeatureError
		rendErr  *backend.RenderError
	)
	switch {
	case errors.As(err, &unrecErr):
		return KindUnrecognized
	case errors.As(err, &synErr):
		return KindSyntax
	case errors.As(err, &unsupErr):
		return KindUnsupported
	case errors.As(err, &rendErr):
		return KindRender
	default:
		return KindOther
	}
}
