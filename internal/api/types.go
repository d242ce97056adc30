package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/leafsii/journal-backend/internal/db/entities"
)

// User-facing response messages
const (
	MsgListCategoriesFailed = "Erreur lors de la récupération des catégories"
	MsgCreateCategoryFailed = "Erreur lors de la création de la catégorie"
	MsgListEntriesFailed    = "Erreur lors de la récupération des entrées"
	MsgEntryNotFound        = "Entrée non trouvée"
	MsgGetEntryFailed       = "Erreur lors de la récupération de l'entrée"
	MsgCreateEntryFailed    = "Erreur lors de la création de l'entrée"
	MsgUpdateEntryFailed    = "Erreur lors de la mise à jour de l'entrée"
	MsgEntryDeleted         = "Entrée supprimée avec succès"
	MsgDeleteEntryFailed    = "Erreur lors de la suppression de l'entrée"
	MsgListCommentsFailed   = "Erreur lors de la récupération des commentaires"
	MsgCreateCommentFailed  = "Erreur lors de l'ajout du commentaire"
	MsgCommentDeleted       = "Commentaire supprimé avec succès"
	MsgDeleteCommentFailed  = "Erreur lors de la suppression du commentaire"
	MsgListMediaFailed      = "Erreur lors de la récupération des médias"
	MsgUploadFailed         = "Erreur lors du téléchargement du média"
	MsgMediaDeleted         = "Média supprimé avec succès"
	MsgDeleteMediaFailed    = "Erreur lors de la suppression du média"
	MsgInvalidID            = "Identifiant invalide"
	MsgInvalidBody          = "Requête invalide"
	MsgFileTooLarge         = "Fichier trop volumineux"
	MsgFileNotFound         = "Fichier non trouvé"
	MsgInternalError        = "Erreur interne du serveur"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is the body of a successful delete
type MessageResponse struct {
	Message string `json:"message"`
}

type HealthDTO struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type CategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (r CategoryRequest) toNewCategory() entities.NewCategory {
	return entities.NewCategory{Name: r.Name, Description: r.Description}
}

type EntryRequest struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CategoryID optionalID `json:"categoryId"`
}

func (r EntryRequest) toInput() entities.EntryInput {
	return entities.EntryInput{
		Title:      r.Title,
		Content:    r.Content,
		CategoryID: r.CategoryID.ptr(),
	}
}

type CommentRequest struct {
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
}

var errInvalidID = errors.New("invalid id")

// optionalID accepts a number, a numeric string, null, false or "" (form
// selects send strings). Falsy values decode to no id; negative ids are
// rejected.
type optionalID struct {
	value int64
	set   bool
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	*o = optionalID{}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("false")) {
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return errInvalidID
	}
	o.value, o.set = id, true
	return nil
}

func (o optionalID) ptr() *int64 {
	if !o.set {
		return nil
	}
	id := o.value
	return &id
}
