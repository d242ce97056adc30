package entities

import "time"

// Category is a named tag an entry can optionally point at.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NewCategory carries the fields accepted when creating a category.
type NewCategory struct {
	Name        string
	Description *string
}
