package repo

import (
	"context"
	"errors"
	"time"

	"github.com/booklog/booklog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBookNotFound is returned when no book has the requested id
var ErrBookNotFound = errors.New("book not found")

// BookRepository is the persistence gateway for the books table. Every
// method issues exactly one statement.
type BookRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(database *db.DB, logger *zap.Logger) *BookRepository {
	return &BookRepository{
		db:  database,
		log: logger,
	}
}

// BookUpdate is a partial patch. Nil fields are left untouched.
type BookUpdate struct {
	Title  *string
	Author *string
	Status *string
	Stars  *int
	Review *string
}

// Fields returns the names of the columns the patch changes, in a stable order.
func (u BookUpdate) Fields() []string {
	var fields []string
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Author != nil {
		fields = append(fields, "author")
	}
	if u.Status != nil {
		fields = append(fields, "status")
	}
	if u.Stars != nil {
		fields = append(fields, "stars")
	}
	if u.Review != nil {
		fields = append(fields, "review")
	}
	return fields
}

func (u BookUpdate) columns(now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"updated_at": now}
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Author != nil {
		updates["author"] = *u.Author
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.Stars != nil {
		updates["stars"] = *u.Stars
	}
	if u.Review != nil {
		updates["review"] = *u.Review
	}
	return updates
}

// ListBooks returns every book, oldest first. Books created in the same
// instant keep insertion order.
func (r *BookRepository) ListBooks(ctx context.Context) ([]*db.Book, error) {
	books := []*db.Book{}
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, err
	}
	return books, nil
}

// GetBook retrieves a book by id
func (r *BookRepository) GetBook(ctx context.Context, id int64) (*db.Book, error) {
	var book db.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &book, nil
}

// CreateBook inserts book and fills in its generated id and timestamps
func (r *BookRepository) CreateBook(ctx context.Context, book *db.Book) error {
	now := db.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.log.Error("Failed to create book", zap.String("title", book.Title), zap.Error(err))
		return err
	}

	r.log.Info("Book created", zap.Int64("id", book.ID), zap.String("title", book.Title))
	return nil
}

// UpdateBook applies the patch and returns the stored row. updated_at is
// always refreshed, even for an empty patch.
func (r *BookRepository) UpdateBook(ctx context.Context, id int64, update BookUpdate) (*db.Book, error) {
	var book db.Book
	result := r.db.WithContext(ctx).
		Model(&book).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(update.columns(db.Now()))
	if result.Error != nil {
		r.log.Error("Failed to update book", zap.Int64("id", id), zap.Error(result.Error))
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, ErrBookNotFound
	}

	r.log.Info("Book updated", zap.Int64("id", id), zap.Strings("fields_changed", update.Fields()))
	return &book, nil
}

// DeleteBook permanently removes a book
func (r *BookRepository) DeleteBook(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Book{})
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book deleted", zap.Int64("id", id))
	return nil
}

// Stats counts books per status.
type Stats struct {
	Total   int64
	Reading int64
	Done    int64
}

// GetStats returns catalog statistics for metrics
func (r *BookRepository) GetStats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Book{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case "reading":
			stats.Reading = row.Count
		case "done":
			stats.Done = row.Count
		}
	}
	return stats, nil
}
