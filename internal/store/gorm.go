package store

import (
	"context"
	"errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// KVRecord is the single-table schema backing the sqlite KV. The app's data
// is a handful of JSON documents, so a relational layout buys nothing here.
type KVRecord struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

// TableName overrides the gorm default pluralization.
func (KVRecord) TableName() string { return "kv_records" }

// GormKV is a KV over an embedded sqlite database, the default backend for
// the desktop build.
type GormKV struct {
	db *gorm.DB
}

// NewGormKV opens (and migrates) the sqlite database at path.
func NewGormKV(path string) (*GormKV, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, err
	}
	return &GormKV{db: db}, nil
}

func (g *GormKV) Get(ctx context.Context, key string) ([]byte, error) {
	var record KVRecord
	err := g.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return record.Value, nil
}

func (g *GormKV) Set(ctx context.Context, key string, value []byte) error {
	record := KVRecord{Key: key, Value: value}
	return g.db.WithContext(ctx).Save(&record).Error
}

func (g *GormKV) Delete(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Delete(&KVRecord{}, "key = ?", key).Error
}

func (g *GormKV) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
