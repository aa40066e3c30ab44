package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/showcase/internal/config"
	"github.com/showcase/internal/db"
	"github.com/showcase/internal/handler"
	"github.com/showcase/internal/logging"
	"github.com/showcase/internal/router"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

// databaseFlags 覆盖环境变量中的数据库配置，各子命令共用。
func databaseFlags(cfg *config.AppConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-driver",
			Usage:       "database driver ([sqlite, postgres])",
			EnvVars:     []string{"DATABASE_DRIVER"},
			Value:       cfg.DatabaseDriver,
			Destination: &cfg.DatabaseDriver,
		},
		&cli.StringFlag{
			Name:        "database-path",
			Usage:       "sqlite database file",
			EnvVars:     []string{"DATABASE_PATH"},
			Value:       cfg.DatabasePath,
			Destination: &cfg.DatabasePath,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection string, required when driver is postgres",
			EnvVars:     []string{"DATABASE_URL"},
			Value:       cfg.DatabaseURL,
			Destination: &cfg.DatabaseURL,
		},
	}
}

func openDatabase(cfg config.AppConfig) error {
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseDSN()); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	return nil
}

func serveCmd(cfg *config.AppConfig) *cli.Command {
	cmd := cli.Command{
		Name:  "serve",
		Usage: "start the http server",
	}
	cmd.Flags = append(databaseFlags(cfg),
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "address to listen on",
			EnvVars:     []string{"LISTEN_ADDR"},
			Value:       cfg.ListenAddr,
			Destination: &cfg.ListenAddr,
		},
		&cli.StringFlag{
			Name:        "upload-dir",
			Usage:       "directory for uploaded images",
			EnvVars:     []string{"UPLOAD_DIR"},
			Value:       cfg.UploadDir,
			Destination: &cfg.UploadDir,
		},
		&cli.StringFlag{
			Name:        "backup-dir",
			Usage:       "directory for database backups",
			EnvVars:     []string{"BACKUP_DIR"},
			Value:       cfg.BackupDir,
			Destination: &cfg.BackupDir,
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "ttl of in-memory content caches",
			EnvVars:     []string{"CACHE_TTL"},
			Value:       cfg.CacheTTL,
			Destination: &cfg.CacheTTL,
		},
	)

	cmd.Action = func(c *cli.Context) error {
		gin.SetMode(cfg.GinMode)
		if err := openDatabase(*cfg); err != nil {
			return err
		}

		created, err := db.EnsureUser(db.DB, cfg.AdminUserName, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin user: %w", err)
		}
		if created {
			log.Info().Str("username", cfg.AdminUserName).Msg("created admin user from environment")
		}

		api := handler.NewAPI(db.DB, *cfg)
		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router.SetupRouter(api, *cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-c.Context.Done():
		}

		log.Info().Msg("shutting down http server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	}
	return &cmd
}

func initUserCmd(cfg *config.AppConfig) *cli.Command {
	var username, password string
	cmd := cli.Command{
		Name:  "init-user",
		Usage: "create the initial admin account if it does not exist",
	}
	cmd.Flags = append(databaseFlags(cfg),
		&cli.StringFlag{
			Name:        "username",
			Usage:       "admin username",
			EnvVars:     []string{"ADMIN_USERNAME"},
			Destination: &username,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "admin password",
			EnvVars:     []string{"ADMIN_PASSWORD"},
			Destination: &password,
			Required:    true,
		},
	)

	cmd.Action = func(c *cli.Context) error {
		if err := openDatabase(*cfg); err != nil {
			return err
		}
		created, err := db.EnsureUser(db.DB, username, password)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("username", username).Msg("admin user created")
		} else {
			log.Info().Str("username", username).Msg("admin user already exists, nothing to do")
		}
		return nil
	}
	return &cmd
}

func backupCmd(cfg *config.AppConfig) *cli.Command {
	cmd := cli.Command{
		Name:  "backup",
		Usage: "dump every table to a json backup file",
	}
	cmd.Flags = append(databaseFlags(cfg),
		&cli.StringFlag{
			Name:        "backup-dir",
			Usage:       "directory for database backups",
			EnvVars:     []string{"BACKUP_DIR"},
			Value:       cfg.BackupDir,
			Destination: &cfg.BackupDir,
		},
	)

	cmd.Action = func(c *cli.Context) error {
		if err := openDatabase(*cfg); err != nil {
			return err
		}
		backup, err := handler.NewAPI(db.DB, *cfg).Backups().Create(c.Context)
		if err != nil {
			return err
		}
		log.Info().Str("file", backup.FileName).Int64("size", backup.SizeBytes).Msg("backup completed")
		return nil
	}
	return &cmd
}

func main() {
	cfg := config.Load()
	logLevel := cfg.LogLevel
	logFormat := cfg.LogFormat

	ctx, cancel := context.WithCancel(context.Background())
	app := cli.NewApp()
	app.Name = "showcase"
	app.Usage = "marketing site and admin api"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level ([trace, debug, info, warn, error])",
			EnvVars:     []string{"LOG_LEVEL"},
			Value:       logLevel,
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format ([auto, human, json])",
			EnvVars:     []string{"LOG_FORMAT"},
			Value:       logFormat,
			Destination: &logFormat,
		},
	}

	app.Before = func(c *cli.Context) error {
		return logging.Setup(logLevel, logFormat)
	}
	app.Commands = []*cli.Command{
		serveCmd(&cfg),
		initUserCmd(&cfg),
		backupCmd(&cfg),
		seedCmd(&cfg),
	}
	app.DefaultCommand = "serve"

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()
	err := app.RunContext(ctx, os.Args)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("showcase exited with error")
		os.Exit(1)
	}
}
