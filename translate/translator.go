// Package translate wraps machine-translation backends and the optional refinement pass
// behind calls that never fail outright.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorPrefix starts the text of a failed translation. Existing callers of the text
// translation endpoint match on it.
const ErrorPrefix = "Translation error: "

// ErrEmptyTranslation is reported when a backend answers with no text.
var ErrEmptyTranslation = errors.New("empty translation")

// Translator is a machine-translation backend. source may be "auto".
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// Enhancer refines a basic translation, typically with a language model.
type Enhancer interface {
	Enhance(ctx context.Context, original, basic string) (string, error)
}

// Result is the outcome of a basic translation. When Err is set, Text holds the
// error-prefixed message that is used in place of a translation.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the translation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Service combines a translator with an optional enhancer.
type Service struct {
	translator Translator
	enhancer   Enhancer
	logger     zerolog.Logger
}

// NewService builds a service; enhancer may be nil, in which case Enhance returns basic.
func NewService(translator Translator, enhancer Enhancer) (*Service, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	return &Service{
		translator: translator,
		enhancer:   enhancer,
		logger:     log.With().Str("component", "translate").Logger(),
	}, nil
}

// Translate never returns an error value; failures are reported through Result.
func (s *Service) Translate(ctx context.Context, text, target, source string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("translator panic: %v", r)
			res = Result{Text: ErrorPrefix + err.Error(), Err: err}
		}
	}()

	out, err := s.translator.Translate(ctx, text, target, source)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyTranslation
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("target", target).Str("source", source).Msg("basic translation failed")
		return Result{Text: ErrorPrefix + err.Error(), Err: err}
	}
	return Result{Text: out}
}

// TranslateText is the string-only form: a failed translation comes back as the
// error-prefixed message.
func (s *Service) TranslateText(ctx context.Context, text, target, source string) string {
	return s.Translate(ctx, text, target, source).Text
}

// Enhance returns the refined translation, or basic unchanged if refinement fails
// for any reason or no enhancer is configured.
func (s *Service) Enhance(ctx context.Context, original, basic string) (out string) {
	if s.enhancer == nil {
		return basic
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn().Interface("panic", r).Msg("enhancement panicked, using basic translation")
			out = basic
		}
	}()

	enhanced, err := s.enhancer.Enhance(ctx, original, basic)
	if err != nil {
		s.logger.Warn().Err(err).Msg("enhancement failed, using basic translation")
		return basic
	}
	if strings.TrimSpace(enhanced) == "" {
		return basic
	}
	return enhanced
}
