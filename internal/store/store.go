package store

import (
	"context"
	"database/sql"
	errs "errors"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DaanHessen/basis-tower/internal/util"
)

var (
	ErrNoChange = errs.New("no change")
	ErrNotFound = errs.New("not found")
)

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error   { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Open connects to DB per config.
func Open(ctx context.Context, cfg util.Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	// Postgres-only
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, wrap(err, "open postgres")
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(4)
	sdb.SetMaxIdleConns(2)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, wrap(err, "ping postgres")
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Preference is one profile's stored settings.
type Preference struct {
	Profile   string
	Muted     bool
	UpdatedAt time.Time
}

// PreferenceRepo reads and writes the preferences table.
type PreferenceRepo struct{ db *DB }

func NewPreferenceRepo(db *DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

func (r *PreferenceRepo) Get(ctx context.Context, profile string) (Preference, error) {
	row := r.db.gorm.WithContext(ctx).Raw(`SELECT profile, muted, updated_at FROM preferences WHERE profile = ?`, profile).Row()
	var p Preference
	if err := row.Scan(&p.Profile, &p.Muted, &p.UpdatedAt); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return Preference{}, ErrNotFound
		}
		return Preference{}, wrap(err, "get preference")
	}
	return p, nil
}

func (r *PreferenceRepo) SetMuted(ctx context.Context, profile string, muted bool) error {
	err := r.db.gorm.WithContext(ctx).Exec(`INSERT INTO preferences(profile, muted) VALUES (?, ?)
	ON CONFLICT (profile) DO UPDATE SET muted = EXCLUDED.muted, updated_at = NOW()`, profile, muted).Error
	return wrap(err, "save muted")
}

func (r *PreferenceRepo) Delete(ctx context.Context, profile string) error {
	return r.db.WithTx(ctx, func(tx *gorm.DB) error {
		return wrap(tx.Exec(`DELETE FROM preferences WHERE profile = ?`, profile).Error, "delete preference")
	})
}

// MuteStore binds the repository to one profile so it can back the mute preference.
type MuteStore struct {
	repo    *PreferenceRepo
	profile string
	timeout time.Duration
}

func NewMuteStore(repo *PreferenceRepo, profile string) *MuteStore {
	return &MuteStore{repo: repo, profile: profile, timeout: 5 * time.Second}
}

func (m *MuteStore) LoadMuted() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	p, err := m.repo.Get(ctx, m.profile)
	if errs.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Muted, nil
}

func (m *MuteStore) SaveMuted(muted bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	return m.repo.SetMuted(ctx, m.profile, muted)
}

// Helper error wrap
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
