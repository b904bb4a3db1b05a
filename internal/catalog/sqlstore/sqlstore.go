// Package sqlstore is a Postgres-backed implementation of catalog.Store
// using gorm.io/gorm for both schema migration and CRUD, following the
// teacher's internal/storage/postgres pattern of a thin Store struct
// wrapping a gorm.DB handle with an explicit connection-pool
// configuration.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"catalogdns/internal/catalog"
)

// row is the gorm row model for the domains table. The lifecycle
// discriminant and its single timestamp are stored as two nullable
// columns and translated to/from catalog.Lifecycle at this boundary —
// the tagged variant never leaks into the schema, per the Design Notes.
type row struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Name            string `gorm:"uniqueIndex;type:varchar(253);not null"`
	Address         string `gorm:"type:varchar(15);not null"`
	MailHost        string `gorm:"type:varchar(253)"`
	MXPriority      uint16 `gorm:"column:mx_priority"`
	Nameservers     []string `gorm:"serializer:json;type:json"`
	LifecycleState  int      `gorm:"index"`
	LifecycleSince  *time.Time
	Enabled         bool `gorm:"default:true;index"`
	LastVerifiedAt  *time.Time
	Discord         bool
	Description     *string
	Tags            []string `gorm:"serializer:json;type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (row) TableName() string { return "domains" }

func (r *row) toDomain() *catalog.Domain {
	lifecycle := catalog.Lifecycle{State: catalog.LifecycleState(r.LifecycleState)}
	if r.LifecycleSince != nil {
		lifecycle.Timestamp = *r.LifecycleSince
	}
	return &catalog.Domain{
		ID:             r.ID,
		Name:           r.Name,
		Address:        r.Address,
		MailHost:       r.MailHost,
		MXPriority:     r.MXPriority,
		Nameservers:    r.Nameservers,
		Lifecycle:      lifecycle,
		Enabled:        r.Enabled,
		LastVerifiedAt: r.LastVerifiedAt,
		Discord:        r.Discord,
		Description:    r.Description,
		Tags:           r.Tags,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Store is the Postgres-backed catalog.Store.
type Store struct {
	db *gorm.DB
}

// Config controls connection pool sizing, mirroring internal/config.CatalogueConfig.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New opens a Postgres connection, configures its pool and runs AutoMigrate.
func New(cfg Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Upsert(ctx context.Context, spec catalog.Spec) (catalog.UpsertResult, error) {
	if err := catalog.ValidateSpec(spec); err != nil {
		return 0, err
	}
	name := catalog.CanonicalizeName(spec.Name)
	now := time.Now().UTC()

	r := &row{
		ID:          uuid.NewString(),
		Name:        name,
		Address:     spec.Address,
		MailHost:    spec.MailHost,
		MXPriority:  spec.MXPriority,
		Nameservers: append([]string(nil), spec.Nameservers...),
		Discord:     spec.Discord,
		Description: spec.Description,
		Tags:        append([]string(nil), spec.Tags...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Postgres reports one affected row for both the insert and the
	// conflict-update path, so existence is read before the upsert.
	var existing int64
	if err := s.db.WithContext(ctx).Model(&row{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return 0, fmt.Errorf("sqlstore: upsert: %w", err)
	}

	// ON CONFLICT(name) DO UPDATE scoped to upstream-sourced columns
	// only — lifecycle_state and lifecycle_since are never touched
	// here; the Verifier owns them.
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"address", "mail_host", "mx_priority", "nameservers",
			"discord", "description", "tags", "updated_at",
		}),
	}).Create(r)
	if result.Error != nil {
		return 0, fmt.Errorf("sqlstore: upsert: %w", result.Error)
	}

	if existing == 0 {
		return catalog.Created, nil
	}
	return catalog.Updated, nil
}

func (s *Store) Delete(ctx context.Context, name string) (catalog.DeleteResult, error) {
	name = catalog.CanonicalizeName(name)
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&row{})
	if result.Error != nil {
		return 0, fmt.Errorf("sqlstore: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.Absent, nil
	}
	return catalog.Existed, nil
}

func (s *Store) Get(ctx context.Context, name string) (*catalog.Domain, error) {
	name = catalog.CanonicalizeName(name)
	var r row
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("sqlstore: get: %w", err)
	}
	return r.toDomain(), nil
}

func (s *Store) ListActive(ctx context.Context) ([]*catalog.Domain, error) {
	var rows []row
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list_active: %w", err)
	}
	out := make([]*catalog.Domain, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]*catalog.Domain, error) {
	var rows []row
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list_all: %w", err)
	}
	out := make([]*catalog.Domain, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) error {
	name = catalog.CanonicalizeName(name)
	result := s.db.WithContext(ctx).Model(&row{}).Where("name = ?", name).
		Updates(map[string]interface{}{"enabled": enabled, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("sqlstore: set_enabled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetLifecycle runs inside a single-row transaction and returns the
// previous lifecycle read inside that transaction, never a value from
// an earlier, possibly stale, read.
func (s *Store) SetLifecycle(ctx context.Context, name string, next catalog.Lifecycle, lastVerifiedAt *time.Time) (catalog.Lifecycle, error) {
	name = catalog.CanonicalizeName(name)
	var previous catalog.Lifecycle

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r row
		if err := tx.Where("name = ?", name).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrNotFound
			}
			return err
		}
		if err := catalog.ValidateNameservers(r.Nameservers, next.State); err != nil {
			return err
		}

		previous = catalog.Lifecycle{State: catalog.LifecycleState(r.LifecycleState)}
		if r.LifecycleSince != nil {
			previous.Timestamp = *r.LifecycleSince
		}

		updates := map[string]interface{}{
			"lifecycle_state": int(next.State),
			"updated_at":      time.Now().UTC(),
		}
		if next.Timestamp.IsZero() {
			updates["lifecycle_since"] = nil
		} else {
			updates["lifecycle_since"] = next.Timestamp
		}
		if lastVerifiedAt != nil {
			updates["last_verified_at"] = *lastVerifiedAt
		}

		return tx.Model(&row{}).Where("name = ?", name).Updates(updates).Error
	})
	if err != nil {
		return catalog.Lifecycle{}, err
	}
	return previous, nil
}
