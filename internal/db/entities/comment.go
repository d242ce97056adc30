package entities

import "time"

type Comment struct {
	ID         int64     `json:"id" db:"id"`
	EntryID    int64     `json:"entryId" db:"entry_id"`
	Content    string    `json:"content" db:"content"`
	AuthorName string    `json:"authorName" db:"author_name"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type NewComment struct {
	EntryID    int64
	Content    string
	AuthorName string
}
