package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 返回需要自动迁移的全部模型，测试与备份共用同一份列表。
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Page{},
		&Post{},
		&Demo{},
		&Package{},
		&Popup{},
		&MenuItem{},
		&Reservation{},
		&ContactMessage{},
		&Notification{},
		&Subscriber{},
		&PathStatistic{},
		&PathVisit{},
		&DailyTraffic{},
		&DailyVisitor{},
		&SystemSetting{},
		&Backup{},
		&SecurityLog{},
		&IPRule{},
	}
}

// Init 初始化数据库连接并执行自动迁移。
// driver 为空时使用 sqlite，dsn 为空时回退到 showcase.db。
func Init(driver, dsn string) error {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	return DB.AutoMigrate(Models()...)
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres driver requires DATABASE_URL")
		}
		return postgres.Open(dsn), nil
	case "", DriverSQLite:
		path := strings.TrimSpace(dsn)
		if path == "" {
			path = "showcase.db"
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return sqlite.Open(path), nil
	default:
		return nil, errors.New("unsupported database driver: " + driver)
	}
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
