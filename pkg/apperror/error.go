// Package apperror defines the typed failures that reach a user as a canned
// Spanish message instead of a stack trace.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValue
	KindMissingKey
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindMissingKey:
		return "missing_key"
	case KindEmpty:
		return "empty"
	default:
		return "internal"
	}
}

// Error carries the kind and, for value errors, the parameter that was wrong.
type Error struct {
	Kind    Kind
	Param   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Value reports a parameter the user supplied that cannot be used.
func Value(param, format string, args ...any) *Error {
	return &Error{Kind: KindValue, Param: param, Message: fmt.Sprintf(format, args...)}
}

// MissingKey reports a column or lookup key that does not exist.
func MissingKey(key string) *Error {
	return &Error{Kind: KindMissingKey, Param: key, Message: key}
}

// Empty reports an aggregation over no rows.
func Empty(format string, args ...any) *Error {
	return &Error{Kind: KindEmpty, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps anything that is not the user's fault.
func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

const (
	msgMetric    = "Lo siento, parece que hay un problema con el tipo de métrica solicitada. Puedo proporcionarte rankings por calificación general, por puntos totales o por número de actividades. ¿Cuál te interesa?"
	msgFecha     = "No pude interpretar correctamente la fecha mencionada. Por favor, intenta especificar la fecha en un formato como 'DD/MM/YYYY' o 'YYYY-MM-DD'."
	msgSucursal  = "No pude identificar correctamente la sucursal mencionada. Por favor, especifica el número de sucursal claramente."
	msgUsuario   = "No pude identificar correctamente al usuario mencionado. Por favor, especifica el nombre o ID del usuario claramente."
	msgActividad = "No pude identificar correctamente la actividad mencionada. Por favor, especifica el nombre de la actividad claramente."
	msgValue     = "Hubo un problema con los datos proporcionados: %s. Por favor, intenta reformular tu pregunta."
	msgMissing   = "Lo siento, no encuentro información sobre %s. ¿Podrías verificar si el dato es correcto?"
	msgEmpty     = "No encontré suficientes datos para responder a tu consulta. ¿Podrías reformularla o ser más específico?"

	// GenericMessage is the answer for every failure without a better mapping.
	GenericMessage = "Lo siento, tuve un problema procesando tu consulta. Intenta reformularla o hacer una pregunta diferente."
)

// FriendlyMessage maps err to the message shown to the user.
func FriendlyMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return GenericMessage
	}

	switch appErr.Kind {
	case KindValue:
		return valueMessage(appErr)
	case KindMissingKey:
		return fmt.Sprintf(msgMissing, appErr.Param)
	case KindEmpty:
		return msgEmpty
	default:
		return GenericMessage
	}
}

func valueMessage(e *Error) string {
	param := strings.ToLower(e.Param)
	msg := strings.ToLower(e.Message)
	switch {
	case param == "metric" || param == "metrica" || param == "tipo" || strings.Contains(msg, "métrica") || strings.Contains(msg, "tipo de ranking"):
		return msgMetric
	case param == "fecha" || strings.Contains(msg, "fecha"):
		return msgFecha
	case param == "sucursal":
		return msgSucursal
	case param == "usuario":
		return msgUsuario
	case param == "actividad":
		return msgActividad
	default:
		return fmt.Sprintf(msgValue, e.Message)
	}
}
