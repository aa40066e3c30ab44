package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/db"
	"gorm.io/gorm"
)

const backupFilePrefix = "backup-"

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrBackupNotReady = errors.New("backup is not completed")
)

// Dumper 将数据库内容写入 w。
type Dumper interface {
	Dump(ctx context.Context, w io.Writer) error
}

// JSONDumper 把 Models() 中的每张表导出为一个 JSON 文档。
type JSONDumper struct {
	db     *gorm.DB
	models []interface{}
	now    func() time.Time
}

func NewJSONDumper(gdb *gorm.DB) *JSONDumper {
	return &JSONDumper{db: gdb, models: db.Models(), now: time.Now}
}

type backupDocument struct {
	CreatedAt time.Time                           `json:"createdAt"`
	Tables    map[string][]map[string]interface{} `json:"tables"`
}

// Dump reads every table, including soft-deleted rows.
func (d *JSONDumper) Dump(ctx context.Context, w io.Writer) error {
	doc := backupDocument{
		CreatedAt: d.now().UTC(),
		Tables:    make(map[string][]map[string]interface{}, len(d.models)),
	}

	for _, model := range d.models {
		stmt := &gorm.Statement{DB: d.db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		rows := make([]map[string]interface{}, 0)
		if err := d.db.WithContext(ctx).Table(table).Order("id asc").Find(&rows).Error; err != nil {
			return fmt.Errorf("dump table %s: %w", table, err)
		}
		doc.Tables[table] = rows
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// BackupService 管理备份文件与对应记录。
type BackupService struct {
	db     *gorm.DB
	dumper Dumper
	dir    string
	now    func() time.Time
}

func NewBackupService(gdb *gorm.DB, dumper Dumper, dir string) *BackupService {
	if strings.TrimSpace(dir) == "" {
		dir = "backups"
	}
	return &BackupService{db: gdb, dumper: dumper, dir: dir, now: time.Now}
}

// Create 执行一次导出。导出失败时记录会被标记为 failed 并返回错误。
func (s *BackupService) Create(ctx context.Context) (*db.Backup, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("%s%s-%s.json", backupFilePrefix, s.now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	backup := db.Backup{FileName: name, Status: db.BackupRunning}
	if err := s.db.Create(&backup).Error; err != nil {
		return nil, err
	}

	size, dumpErr := s.writeFile(ctx, filepath.Join(s.dir, name))
	if dumpErr != nil {
		log.Error().Stack().Err(dumpErr).Str("component", "backup").Str("file", name).Msg("backup failed")
		backup.Status = db.BackupFailed
		backup.Error = dumpErr.Error()
	} else {
		backup.Status = db.BackupCompleted
		backup.SizeBytes = size
	}

	if err := s.db.Model(&backup).Updates(map[string]interface{}{
		"status":     backup.Status,
		"size_bytes": backup.SizeBytes,
		"error":      backup.Error,
	}).Error; err != nil {
		return nil, err
	}
	if dumpErr != nil {
		return &backup, dumpErr
	}

	log.Info().Str("file", name).Int64("bytes", size).Msg("backup completed")
	return &backup, nil
}

func (s *BackupService) writeFile(ctx context.Context, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	if err := s.dumper.Dump(ctx, file); err != nil {
		file.Close()
		os.Remove(path)
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// List returns backups newest first.
func (s *BackupService) List() ([]db.Backup, error) {
	var backups []db.Backup
	if err := s.db.Order("created_at desc, id desc").Find(&backups).Error; err != nil {
		return nil, err
	}
	return backups, nil
}

func (s *BackupService) Get(id uint) (*db.Backup, error) {
	var backup db.Backup
	if err := s.db.First(&backup, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return &backup, nil
}

// FilePath 返回已完成备份的磁盘路径，供下载使用。
func (s *BackupService) FilePath(id uint) (*db.Backup, string, error) {
	backup, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	if backup.Status != db.BackupCompleted {
		return nil, "", ErrBackupNotReady
	}

	path := filepath.Join(s.dir, filepath.Base(backup.FileName))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrBackupNotFound
		}
		return nil, "", err
	}
	return backup, path, nil
}

// Delete removes the record and its file; a missing file is ignored.
func (s *BackupService) Delete(id uint) error {
	backup, err := s.Get(id)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, filepath.Base(backup.FileName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.db.Unscoped().Delete(backup).Error
}
