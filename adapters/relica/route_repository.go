package relica

import (
	"context"
	"database/sql"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/model"
	"github.com/coregx/relica"
)

// RouteRecordRepository implements conductor.RouteRecordRepository using Relica.
type RouteRecordRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewRouteRecordRepository creates a new RouteRecordRepository with default table prefix.
func NewRouteRecordRepository(sqlDB *sql.DB, driverName string) *RouteRecordRepository {
	return &RouteRecordRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: DefaultTablePrefix,
	}
}

// NewRouteRecordRepositoryWithPrefix creates a new RouteRecordRepository with custom table prefix.
func NewRouteRecordRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *RouteRecordRepository {
	return &RouteRecordRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *RouteRecordRepository) tableName() string {
	return r.tablePrefix + "route"
}

// Save inserts a route record. Route records are never updated.
func (r *RouteRecordRepository) Save(ctx context.Context, m model.RouteRecord) (model.RouteRecord, error) {
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
	if err != nil {
		return m, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to insert route record", err)
	}
	return m, nil
}

// FindByTopic retrieves the newest route records for a topic.
func (r *RouteRecordRepository) FindByTopic(ctx context.Context, topic string, limit int) ([]model.RouteRecord, error) {
	var records []model.RouteRecord

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("topic = ?", topic).
		OrderBy("id DESC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&records)

	if err != nil {
		return nil, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to find route records by topic", err)
	}

	if len(records) == 0 {
		return nil, conductor.ErrNoData
	}

	return records, nil
}

// CountByTopic returns the number of route records for a topic.
func (r *RouteRecordRepository) CountByTopic(ctx context.Context, topic string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).Where("topic = ?", topic).One(&count)
	if err != nil {
		return 0, conductor.NewErrorWithCause(conductor.ErrCodeDatabase, "failed to count route records", err)
	}
	return int(count), nil
}
