package services

import (
	"errors"
	"fmt"
)

// Kind classifies service failures for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad request"
	default:
		return "internal"
	}
}

// Error is returned by every GalleryService operation. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err. Errors not produced by this package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Client facing messages.
const (
	msgNotFound       = "Galeria não encontrada"
	msgTitleExists    = "Já existe uma galeria com esse título"
	msgTitleTaken     = "Título já existe"
	msgTitleRequired  = "O título é obrigatório"
	msgTitleTooLong   = "O título deve ter no máximo 255 caracteres"
	msgNoFile         = "Nenhum arquivo enviado"
	msgFileTooLargeFm = "O arquivo excede o limite de %s"
)

func notFound() error {
	return &Error{Kind: KindNotFound, Message: msgNotFound}
}

func conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func badRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// internal keeps the underlying message visible, as clients get it attached to 500 responses.
func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: fmt.Errorf("%s: %w", op, err)}
}
