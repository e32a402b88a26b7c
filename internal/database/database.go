package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// models lists every table the store owns.
var models = []any{
	&Movie{},
	&Series{},
	&Game{},
	&Manga{},
	&Book{},
}

// Client wraps the gorm.DB instance and hands out one repository per record kind.
type Client struct {
	db   *gorm.DB
	path string

	movies *Repository[Movie, *Movie]
	series *Repository[Series, *Series]
	games  *Repository[Game, *Game]
	manga  *Repository[Manga, *Manga]
	books  *Repository[Book, *Book]
}

// New opens the database file and creates any missing tables.
func New(dbpath string) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(dbpath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbpath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Callback().Create().Before("gorm:create").Register("mediashelf:created_at", stampCreatedAt); err != nil {
		return nil, fmt.Errorf("failed to register create callback: %w", err)
	}

	return &Client{
		db:     db,
		path:   dbpath,
		movies: NewRepository[Movie](db),
		series: NewRepository[Series](db),
		games:  NewRepository[Game](db),
		manga:  NewRepository[Manga](db),
		books:  NewRepository[Book](db),
	}, nil
}

// Init creates a fresh schema at dbpath if needed and closes the file again.
// Existing tables are left untouched.
func Init(dbpath string) error {
	c, err := New(dbpath)
	if err != nil {
		return err
	}
	return c.Close()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Path returns the database file path.
func (c *Client) Path() string {
	return c.path
}

// DB returns a session bound to ctx for callers that need raw access.
func (c *Client) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

// Snapshot writes a consistent copy of the database to dest.
// dest must not exist yet.
func (c *Client) Snapshot(ctx context.Context, dest string) error {
	if err := c.db.WithContext(ctx).Exec("VACUUM INTO ?", dest).Error; err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}
	return nil
}

func (c *Client) Movies() *Repository[Movie, *Movie] { return c.movies }
func (c *Client) Series() *Repository[Series, *Series] { return c.series }
func (c *Client) Games() *Repository[Game, *Game] { return c.games }
func (c *Client) Manga() *Repository[Manga, *Manga] { return c.manga }
func (c *Client) Books() *Repository[Book, *Book] { return c.books }

// stampCreatedAt overwrites any caller-provided creation time.
func stampCreatedAt(tx *gorm.DB) {
	if tx.Statement.Schema == nil || tx.Statement.Schema.LookUpField("created_at") == nil {
		return
	}
	tx.Statement.SetColumn("created_at", time.Now())
}

var schemaCache sync.Map

// Columns returns the ordered column list of a record kind, as used for inserts,
// full updates and reads.
func Columns[T any]() ([]string, error) {
	s, err := schema.Parse(new(T), &schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s.DBNames, nil
}
