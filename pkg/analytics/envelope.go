// Package analytics implements the catalog of aggregations over the
// role-play activity dataset. Every operation returns an Envelope and never
// panics out to its caller.
package analytics

import (
	"fmt"

	"rolplay-assistant-be/pkg/apperror"
	"rolplay-assistant-be/pkg/dataset"
)

// Envelope is either {message, data} or {error, data: null}. Err keeps the
// typed cause so callers can pick a canned answer.
type Envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func (e Envelope) Failed() bool { return e.Error != "" }

func ok(message string, data any) Envelope {
	return Envelope{Message: message, Data: data}
}

// failure renders err with the prefix that matches its kind.
func failure(op string, err error) Envelope {
	var prefix string
	switch apperror.KindOf(err) {
	case apperror.KindValue:
		prefix = "Error de valor en"
	case apperror.KindMissingKey:
		prefix = "Error de columna no encontrada en"
	default:
		prefix = "Error inesperado en"
	}
	return Envelope{Error: fmt.Sprintf("%s %s: %s", prefix, op, err.Error()), Err: err}
}

// Failure builds an error envelope for callers outside the package, such as
// the dispatcher rejecting parameters before an operation runs.
func Failure(op string, err error) Envelope { return failure(op, err) }

// Engine runs the catalog over one immutable Dataset.
type Engine struct {
	ds *dataset.Dataset
}

func NewEngine(ds *dataset.Dataset) *Engine {
	if ds == nil {
		ds = dataset.New(nil)
	}
	return &Engine{ds: ds}
}

func (e *Engine) Dataset() *dataset.Dataset { return e.ds }

// run executes fn, converting returned errors and panics into envelopes.
func (e *Engine) run(op string, cols []string, fn func() (Envelope, error)) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = failure(op, apperror.Internal(fmt.Errorf("%v", r), "operación interrumpida"))
		}
	}()

	if err := e.ds.Require(cols...); err != nil {
		return failure(op, err)
	}
	env, err := fn()
	if err != nil {
		return failure(op, err)
	}
	return env
}
