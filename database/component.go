package database

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/pvpauth/component"
	"github.com/kbukum/pvpauth/database/migration"
	"github.com/kbukum/pvpauth/logger"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db  *DB
	cfg Config
	log *logger.Logger
}

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and applies the embedded migrations
// unless SkipMigrations is set.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}

	if !c.cfg.SkipMigrations {
		if err := Migrate(db); err != nil {
			_ = db.Close()
			return fmt.Errorf("database migrate: %w", err)
		}
	}
	c.db = db
	return nil
}

// Migrate applies every pending schema migration to db.
func Migrate(db *DB) error {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return err
	}
	begin := time.Now()
	err = migration.Up(migration.Target{Driver: db.cfg.Driver, URL: db.cfg.URL, DB: sqlDB})
	if err != nil {
		return err
	}
	version, _, err := migration.Version(migration.Target{Driver: db.cfg.Driver, URL: db.cfg.URL, DB: sqlDB})
	if err != nil {
		return err
	}
	db.log.Info("Schema migrated", map[string]interface{}{
		"version":            version,
		logger.FieldDuration: time.Since(begin).Milliseconds(),
	})
	return nil
}

// Stop gracefully closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database. A ping that fails because the pool is
// exhausted or the server refuses connections reports unhealthy.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	sqlDB, err := c.db.SQLDB()
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	stats := sqlDB.Stats()
	h := component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("ping %s, %d/%d connections in use", time.Since(start).Round(time.Microsecond), stats.InUse, stats.MaxOpenConnections),
	}
	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		h.Status = component.StatusDegraded
	}
	return h
}

// Describe returns infrastructure summary info for the startup log.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.SkipMigrations {
		details += " migrations=off"
	}
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: details,
	}
}
