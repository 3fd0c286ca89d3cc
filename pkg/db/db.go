package db

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	constant "liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

// DB is the handle to the local relational store. It is opened once at
// process start, passed down to the stores, and closed at shutdown.
type DB struct {
	Conn *gorm.DB
}

func Open(dialector gorm.Dialector) (*DB, error) {
	log := constant.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// sqlite serializes writers anyway; one connection keeps shared-cache
	// memory databases from failing with table locks
	sqlDB.SetMaxOpenConns(1)

	instance := &DB{Conn: conn}

	if err := instance.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("Database migration completed", zap.Int("schema_version", constant.SchemaVersion))

	if err := instance.Conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable sqlite foreign key support: %w", err)
	}

	if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to set sqlite journal mode: %w", err)
	}

	return instance, nil
}

func (d *DB) migrate() error {
	err := d.Conn.AutoMigrate(
		&models.Contact{},
		&models.SosEvent{},
		&models.LocationSnapshot{},
		&models.SchemaVersion{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var current models.SchemaVersion
	err = d.Conn.Order("version desc").First(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return d.Conn.Create(&models.SchemaVersion{Version: constant.SchemaVersion, AppliedAt: time.Now()}).Error
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case current.Version > constant.SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", current.Version, constant.SchemaVersion)
	case current.Version < constant.SchemaVersion:
		return d.Conn.Create(&models.SchemaVersion{Version: constant.SchemaVersion, AppliedAt: time.Now()}).Error
	}
	return nil
}

// Version is the highest applied schema version.
func (d *DB) Version() (int, error) {
	var current models.SchemaVersion
	if err := d.Conn.Order("version desc").First(&current).Error; err != nil {
		return 0, err
	}
	return current.Version, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(constant.EnvKeySosDbPath); !found {
		dbPath = "sos.db"
	}
	return sqlite.Open(dbPath)
}

// UseMemorySqliteDialector gives every call its own named in-memory
// database so handles never see each other's rows.
func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}
