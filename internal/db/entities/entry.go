package entities

import "time"

// Entry is a dated journal post. Date is fixed at creation, UpdatedAt moves
// forward on every update.
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	CategoryID *int64    `json:"categoryId" db:"category_id"`
	Date       time.Time `json:"date" db:"date"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// EntryWithCategory is an entry joined with its category. Category is nil
// (serialized as null) when the entry has none.
type EntryWithCategory struct {
	Entry
	Category *Category `json:"category"`
}

// EntryInput holds the three mutable fields of an entry. It is used for both
// create and full-replace update.
type EntryInput struct {
	Title      string
	Content    string
	CategoryID *int64
}
