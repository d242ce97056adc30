package journal

import (
	"errors"
)

var (
	// ErrValidation is wrapped by every *ValidationError
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// User-facing validation messages
const (
	MsgTitleRequired      = "Le titre est requis"
	MsgContentRequired    = "Le contenu est requis"
	MsgNameRequired       = "Le nom est requis"
	MsgAuthorNameRequired = "Le nom de l'auteur est requis"
	MsgNoFile             = "Aucun fichier n'a été téléchargé"
)

// ValidationError reports a missing or malformed input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func required(field, value, message string) error {
	if isBlank(value) {
		return &ValidationError{Field: field, Message: message}
	}
	return nil
}
