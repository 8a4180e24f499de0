package domain

import (
	"context"
	"io"
	"time"
)

const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// User is a registered account. ID is assigned by the store on Create and
// never changes afterwards. Photo, when set, names an object in the PhotoStore.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
	Photo        string
	CreatedAt    time.Time
}

// Filter matches a single column against one or more values. A single value
// is an equality test, several values form an IN list.
type Filter struct {
	Field  string
	Values []string
}

// SortField orders results by a column.
type SortField struct {
	Field string
	Desc  bool
}

// UserQuery describes a filtered, sorted, paginated listing of users.
// Field names are the JSON names: name, email, role, createdAt.
type UserQuery struct {
	Filters []Filter
	Sort    []SortField
	Page    int
	Limit   int
}

// Offset returns the number of rows skipped before the requested page.
func (q UserQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// UserPage is one page of a UserQuery together with the total match count.
type UserPage struct {
	Users []User
	Total int
}

// UserRepository defines persistence operations for users.
// GetByID and GetByEmail return ErrNotFound for missing rows; Delete and
// UpdatePhoto treat a missing row as a no-op.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q UserQuery) (*UserPage, error)
	Update(ctx context.Context, user *User) error
	UpdatePhoto(ctx context.Context, id, photo string) error
	Delete(ctx context.Context, id string) error
}

// Upload is a file received with a request. ContentType is whatever the
// client declared; it is not sniffed.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// PhotoStore persists user photo bytes under a flat name. Saving an existing
// name replaces it.
type PhotoStore interface {
	Save(ctx context.Context, name, contentType string, size int64, r io.Reader) error
}
