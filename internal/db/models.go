package db

import (
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book represents a row of the books table
type Book struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Author    string    `gorm:"type:varchar(255);not null"`
	Status    string    `gorm:"type:varchar(16);not null;default:'reading';index:idx_books_status;check:chk_books_status,status IN ('reading','done')"`
	Stars     *int      `gorm:"check:chk_books_stars,stars BETWEEN 1 AND 5"`
	Review    *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index:idx_books_created_at"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// ToAPI converts the row to its wire representation.
func (b *Book) ToAPI() bookapi.Book {
	return bookapi.Book{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Status:    bookapi.Status(b.Status),
		Stars:     b.Stars,
		Review:    b.Review,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// User is an account holder known to the auth service.
type User struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	Name          string    `gorm:"type:varchar(255);not null"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email"`
	EmailVerified bool      `gorm:"not null;default:false"`
	Image         *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a uuid when the caller did not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Account links a user to a credential provider. For the "credential"
// provider Password holds a bcrypt hash.
type Account struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_accounts_user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE"`
	ProviderID string    `gorm:"type:varchar(64);not null"`
	AccountID  string    `gorm:"type:varchar(255);not null"`
	Password   *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Session is a login session. The signed token handed to clients only
// carries the session id; revocation deletes the row.
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_sessions_user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expires_at"`
	IPAddress string    `gorm:"type:varchar(64)"`
	UserAgent string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
