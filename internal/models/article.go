package models

import "time"

// ArticleMeta is a lightweight representation of one mirrored markdown file,
// returned by storage list operations and used for index reconciliation.
type ArticleMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
