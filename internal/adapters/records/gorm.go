package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// Supported record store drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// playerRow is the players table.
type playerRow struct {
	PlayerID string          `gorm:"column:player_id;primaryKey;size:64"`
	Name     string          `gorm:"column:name;uniqueIndex;size:128;not null"`
	NameKey  string          `gorm:"column:name_key;size:128;index"`
	Country  string          `gorm:"column:country;size:64;index"`
	Money    decimal.Decimal `gorm:"column:money;type:numeric(20,6);not null;default:0"`
}

func (playerRow) TableName() string { return "players" }

func (r playerRow) toModel() model.Participant {
	return model.Participant{
		ID:      r.PlayerID,
		Name:    r.Name,
		Country: r.Country,
		Balance: r.Money.InexactFloat64(),
	}
}

// GormStore is a Store backed by a SQL database through gorm.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the database selected by driver, migrates the players
// table and returns the store.
func Open(ctx context.Context, driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewGormStore(ctx, db)
}

// NewGormStore wraps an existing connection and migrates the schema.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&playerRow{}); err != nil {
		return nil, fmt.Errorf("migrate players: %w", err)
	}
	if err := backfillNameKeys(ctx, db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// backfillNameKeys fills name_key for rows written before the column existed.
func backfillNameKeys(ctx context.Context, db *gorm.DB) error {
	var rows []playerRow
	if err := db.WithContext(ctx).Select("player_id", "name").
		Where("name_key IS NULL OR name_key = ''").Find(&rows).Error; err != nil {
		return fmt.Errorf("scan name keys: %w", err)
	}
	for _, r := range rows {
		if err := db.WithContext(ctx).Model(&playerRow{}).
			Where("player_id = ?", r.PlayerID).
			Update("name_key", foldName(r.Name)).Error; err != nil {
			return fmt.Errorf("backfill name key for %s: %w", r.PlayerID, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetByID implements Store.GetByID.
func (s *GormStore) GetByID(ctx context.Context, id string) (model.Participant, error) {
	defer observe("get_by_id", time.Now())

	var row playerRow
	err := s.db.WithContext(ctx).Where("player_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Participant{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("records", "get_by_id")
		return model.Participant{}, fmt.Errorf("get player %s: %w", id, err)
	}
	return row.toModel(), nil
}

// IDByName implements Store.IDByName.
func (s *GormStore) IDByName(ctx context.Context, name string) (string, error) {
	defer observe("id_by_name", time.Now())

	var row playerRow
	err := s.db.WithContext(ctx).Select("player_id").Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("records", "id_by_name")
		return "", fmt.Errorf("lookup name %q: %w", name, err)
	}
	return row.PlayerID, nil
}

// SearchNames implements Store.SearchNames.
func (s *GormStore) SearchNames(ctx context.Context, partial string, limit int) ([]string, error) {
	defer observe("search_names", time.Now())

	if limit <= 0 {
		return []string{}, nil
	}
	needle := escapeLike(foldName(partial))
	contains := "%" + needle + "%"
	prefix := needle + "%"

	names := make([]string, 0, limit)
	err := s.db.WithContext(ctx).
		Model(&playerRow{}).
		Where("name_key LIKE ? ESCAPE '"+likeEscape+"'", contains).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN name_key LIKE ? ESCAPE '" + likeEscape + "' THEN 0 ELSE 1 END, name",
			Vars:               []any{prefix},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Pluck("name", &names).Error
	if err != nil {
		metrics.RecordErrorByComponent("records", "search_names")
		return nil, fmt.Errorf("search names %q: %w", partial, err)
	}
	return names, nil
}

// ApplyEarnings implements Store.ApplyEarnings inside one transaction.
func (s *GormStore) ApplyEarnings(ctx context.Context, updates []model.EarningsUpdate) error {
	defer observe("apply_earnings", time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			delta := decimal.NewFromFloat(u.Delta)
			if err := tx.Model(&playerRow{}).
				Where("player_id = ?", u.ID).
				Update("money", gorm.Expr("money + ?", delta)).Error; err != nil {
				return fmt.Errorf("apply earnings to %s: %w", u.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("records", "apply_earnings")
	}
	return err
}

// Exists implements Store.Exists.
func (s *GormStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&playerRow{}).Where("player_id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check player %s: %w", id, err)
	}
	return n > 0, nil
}

// Insert implements Store.Insert.
func (s *GormStore) Insert(ctx context.Context, p model.Participant) error {
	if p.ID == "" || p.Name == "" {
		return ErrInvalidRequest
	}
	row := playerRow{
		PlayerID: p.ID,
		Name:     p.Name,
		NameKey:  foldName(p.Name),
		Country:  p.Country,
		Money:    decimal.NewFromFloat(p.Balance),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&playerRow{}).
			Where("player_id = ? OR name = ?", p.ID, p.Name).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert player %s: %w", p.ID, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
