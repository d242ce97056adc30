package entities

import "time"

// MediaType is the coarse classification of an uploaded file.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypePDF   MediaType = "pdf"
	MediaTypeOther MediaType = "other"
)

// Media is an uploaded file attached to an entry. URL is the server-relative
// path the file is served from.
type Media struct {
	ID        int64     `json:"id" db:"id"`
	EntryID   int64     `json:"entryId" db:"entry_id"`
	Type      MediaType `json:"type" db:"type"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type NewMedia struct {
	EntryID int64
	Type    MediaType
	URL     string
}
