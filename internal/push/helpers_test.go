package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	errs []error
	// onSend runs before each attempt.
	onSend func()
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

type env struct {
	db       *gorm.DB
	clock    *clock
	users    *repositories.PostgresUserRepository
	settings repositories.SettingsRepository
	batches  repositories.PushBatchRepository
	notes    repositories.NotificationRepository
	sender   *fakeSender
	batcher  *Batcher
	sweeper  *Sweeper
}

func newEnv(t *testing.T, opts ...SweeperOption) *env {
	t.Helper()
	db := newTestDB(t)
	e := &env{
		db:       db,
		clock:    newClock(),
		users:    repositories.NewPostgresUserRepository(db),
		settings: repositories.NewPostgresSettingsRepository(db),
		batches:  repositories.NewPostgresPushBatchRepository(db),
		notes:    repositories.NewPostgresNotificationRepository(db),
		sender:   &fakeSender{},
	}
	e.batcher = NewBatcher(e.settings, e.batches, logger.Discard())
	e.batcher.now = e.clock.Now
	e.sweeper = e.newSweeper(opts...)
	return e
}

func (e *env) newSweeper(opts ...SweeperOption) *Sweeper {
	opts = append([]SweeperOption{WithBackoff(time.Millisecond)}, opts...)
	s := NewSweeper(e.batches, e.users, e.notes, e.sender, logger.Discard(), opts...)
	s.now = e.clock.Now
	return s
}

func (e *env) user(t *testing.T, name, token string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Name: name, Email: name + "@example.com", PushToken: token}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func strPtr(s string) *string { return &s }
