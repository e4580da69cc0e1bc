package books

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel selects which datastore privilege a query runs under.
type AccessLevel string

const (
	// RowScoped reads are constrained to the caller's own rows, mirroring
	// the datastore's row-level policy.
	RowScoped AccessLevel = "row-scoped"
	// ElevatedReadOnly bypasses the per-owner constraint but only ever sees
	// approved records. It is used solely to read another user's shelf and
	// has no write path.
	ElevatedReadOnly AccessLevel = "elevated-readonly"
)

// Book is one record in a user's library. Only approved records are ever
// fetched by this service.
type Book struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Author      string     `json:"author"`
	Description string     `json:"description,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Approved    bool       `json:"-"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Read reports whether the owner has marked the book as read.
func (b *Book) Read() bool {
	return b.ReadAt != nil
}
