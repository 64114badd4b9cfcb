package models

import "time"

// DefaultImageRef is used for items created without an image.
const DefaultImageRef = "default.png"

// Item represents a single inventory entry in the catalog.
type Item struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Genre     string     `json:"genre"`
	ImageRef  string     `json:"imageRef"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
