package journal

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "rfnode-go/services/gateway/internal/config"
	"rfnode-go/types"
)

// Exchange maps the exchanges table. No gorm.Model: rows are immutable.
type Exchange struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	Command   string    `gorm:"column:command;type:varchar(32);not null"`
	Verb      string    `gorm:"column:verb;type:varchar(16);not null;index"`
	Reply     string    `gorm:"column:reply;type:varchar(32);not null;default:''"`
	Code      string    `gorm:"column:code;type:varchar(32);not null;index"`
	Error     *string   `gorm:"column:error;type:text"`
	LatencyMS int64     `gorm:"column:latency_ms;not null"`
	StartedAt time.Time `gorm:"column:started_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Exchange) TableName() string { return "exchanges" }

func fromResult(r types.ExchangeResult) Exchange {
	e := Exchange{
		ID:        r.ID,
		Command:   r.Command,
		Verb:      types.Verb(r.Command),
		Reply:     r.Reply,
		Code:      r.Code,
		LatencyMS: r.Latency.Milliseconds(),
		StartedAt: r.StartedAt,
	}
	if r.Error != "" {
		msg := r.Error
		e.Error = &msg
	}
	return e
}

func (e Exchange) result() types.ExchangeResult {
	r := types.ExchangeResult{
		ID:        e.ID,
		Command:   e.Command,
		Reply:     e.Reply,
		Code:      e.Code,
		Latency:   time.Duration(e.LatencyMS) * time.Millisecond,
		StartedAt: e.StartedAt,
	}
	if e.Error != nil {
		r.Error = *e.Error
	}
	return r
}

// OpenPostgres opens the database with the configured pool limits.
func OpenPostgres(cfg cfgpkg.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// Gorm stores the journal in a SQL table.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

func (g *Gorm) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&Exchange{})
}

// Append ignores a duplicate id; replays of the same event are harmless.
func (g *Gorm) Append(ctx context.Context, r types.ExchangeResult) error {
	row := fromResult(r)
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&row).Error
}

func (g *Gorm) Recent(ctx context.Context, limit int) ([]types.ExchangeResult, error) {
	var rows []Exchange
	q := g.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.ExchangeResult, len(rows))
	for i, row := range rows {
		out[i] = row.result()
	}
	return out, nil
}
