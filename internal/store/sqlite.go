package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/boxmark/internal/annotate"
)

// DB wraps the SQLite connection with a read/write lock.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// OpenDB opens or creates the database at path and applies the schema.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image TEXT NOT NULL,
		origin_image TEXT NOT NULL,
		boxes TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SQLStore implements Store on a DB.
type SQLStore struct {
	db *DB
}

// NewSQLStore creates a store backed by db.
func NewSQLStore(db *DB) *SQLStore {
	return &SQLStore{db: db}
}

// List returns every record in insertion order without origin images or
// boxes.
func (s *SQLStore) List(ctx context.Context) ([]EditorImage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.conn.QueryContext(ctx, `SELECT id, image FROM images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := []EditorImage{}
	for rows.Next() {
		var id int64
		var img EditorImage
		if err := rows.Scan(&id, &img.Image); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img.WithID(id))
	}
	return images, rows.Err()
}

// Save inserts a record without an id and updates one with an id. Updating
// a missing id returns ErrNotFound.
func (s *SQLStore) Save(ctx context.Context, img EditorImage) (EditorImage, error) {
	boxes, err := encodeBoxes(img.Boxes)
	if err != nil {
		return EditorImage{}, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if img.ID == nil {
		res, err := s.db.conn.ExecContext(ctx, `
			INSERT INTO images (image, origin_image, boxes)
			VALUES (?, ?, ?)
		`, img.Image, img.OriginImage, boxes)
		if err != nil {
			return EditorImage{}, fmt.Errorf("failed to insert image: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return EditorImage{}, fmt.Errorf("failed to read image id: %w", err)
		}
		return img.WithID(id), nil
	}

	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE images SET image = ?, origin_image = ?, boxes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, img.Image, img.OriginImage, boxes, *img.ID)
	if err != nil {
		return EditorImage{}, fmt.Errorf("failed to update image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return EditorImage{}, fmt.Errorf("failed to update image: %w", err)
	}
	if n == 0 {
		return EditorImage{}, fmt.Errorf("update %d: %w", *img.ID, ErrNotFound)
	}
	return img, nil
}

// Load returns the full record.
func (s *SQLStore) Load(ctx context.Context, id int64) (EditorImage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var img EditorImage
	var boxes string
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT image, origin_image, boxes FROM images WHERE id = ?
	`, id).Scan(&img.Image, &img.OriginImage, &boxes)
	if errors.Is(err, sql.ErrNoRows) {
		return EditorImage{}, fmt.Errorf("load %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return EditorImage{}, fmt.Errorf("failed to get image: %w", err)
	}
	if img.Boxes, err = decodeBoxes(boxes); err != nil {
		return EditorImage{}, fmt.Errorf("image %d: %w", id, err)
	}
	return img.WithID(id), nil
}

// Delete removes a record.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	return nil
}

func encodeBoxes(boxes []annotate.Box) (string, error) {
	if boxes == nil {
		boxes = []annotate.Box{}
	}
	b, err := json.Marshal(boxes)
	if err != nil {
		return "", fmt.Errorf("failed to encode boxes: %w", err)
	}
	return string(b), nil
}

func decodeBoxes(s string) ([]annotate.Box, error) {
	var boxes []annotate.Box
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &boxes); err != nil {
		return nil, fmt.Errorf("failed to decode boxes: %w", err)
	}
	return boxes, nil
}
