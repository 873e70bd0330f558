package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

// OpenGorm binds gorm to the shared pgx pool so both use the same connections.
func OpenGorm(pool *pgxpool.Pool, logger *logrus.Logger) (*gorm.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	return gorm.Open(gormpg.New(gormpg.Config{Conn: sqlDB}), GormConfig(logger))
}

// GormConfig is shared by the production and test dialectors.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey for every driver.
func GormConfig(logger *logrus.Logger) *gorm.Config {
	cfg := &gorm.Config{TranslateError: true}
	if logger != nil {
		cfg.Logger = gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	} else {
		cfg.Logger = gormlogger.Discard
	}
	return cfg
}

// AutoMigrate creates the account tables; production schemas come from db/migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.ProfileImage{}, &entity.Address{}, &entity.Person{}, &entity.User{})
}
