// Package sqlstore is a gorm/SQLite auth.Store for running the zone manager
// without DynamoDB.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "./zone-manager.db"

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ auth.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path and applies
// migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	// One connection: SQLite serializes writers anyway, and each
	// connection to ":memory:" would otherwise see its own database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// AutoMigrate applies schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserRecord{}, &SessionRecord{}, &RateLimitRecord{})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	rec := &UserRecord{
		ID:           u.ID,
		Email:        auth.NormalizeEmail(u.Email),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return auth.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var rec UserRecord
	if err := s.db.WithContext(ctx).First(&rec, "email = ?", auth.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &auth.User{
		ID:           rec.ID,
		Email:        rec.Email,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *auth.Session) error {
	rec := &SessionRecord{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) GetSession(ctx context.Context, id string) (*auth.Session, error) {
	var rec SessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	return &auth.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Email:     rec.Email,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&SessionRecord{}, "id = ?", id).Error
}

// PurgeExpiredSessions removes sessions past their expiry. SQLite has no
// TTL so expired rows stay until purged.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&SessionRecord{}, "expires_at <= ?", s.now().UTC())
	return res.RowsAffected, res.Error
}

func (s *Store) IncrementRateLimit(ctx context.Context, key string, limit int, window time.Duration) (int, bool, error) {
	now := s.now().UTC()
	var count int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec RateLimitRecord
		err := tx.First(&rec, "rate_key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = RateLimitRecord{Key: key, Count: 1, WindowEnd: now.Add(window)}
			count = 1
			return tx.Create(&rec).Error
		case err != nil:
			return err
		}

		if now.After(rec.WindowEnd) {
			rec.Count = 0
			rec.WindowEnd = now.Add(window)
		}
		rec.Count++
		count = rec.Count
		return tx.Save(&rec).Error
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return count, count > limit, nil
}
