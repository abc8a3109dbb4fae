package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/atlas-fitness/atlas-api/internal/middleware"
	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/internal/validators"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testUserHeader = "X-Test-User"

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

type memPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPosts() *memPosts { return &memPosts{posts: map[string]*models.Post{}} }

func (m *memPosts) CreatePost(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	cp := *p
	m.posts[p.ID.Hex()] = &cp
	return nil
}

func (m *memPosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) GetPostsByUserID(_ context.Context, userID uint, _, _ int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPosts) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) IncrementLikesCount(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.LikesCount += delta
	}
	return nil
}

func (m *memPosts) IncrementCommentsCount(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.CommentsCount += delta
	}
	return nil
}

type memRoutines struct {
	mu       sync.Mutex
	routines map[string]*models.Routine
}

func newMemRoutines() *memRoutines { return &memRoutines{routines: map[string]*models.Routine{}} }

func (m *memRoutines) CreateRoutine(_ context.Context, r *models.Routine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = primitive.NewObjectID()
	cp := *r
	m.routines[r.ID.Hex()] = &cp
	return nil
}

func (m *memRoutines) GetRoutineByID(_ context.Context, id string) (*models.Routine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routines[id]
	if !ok {
		return nil, fmt.Errorf("routine %s: %w", id, repositories.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *memRoutines) IncrementLikesCount(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.routines[id]; ok {
		r.LikesCount += delta
	}
	return nil
}

func (m *memRoutines) IncrementSavesCount(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.routines[id]; ok {
		r.SavesCount += delta
	}
	return nil
}

// env wires every handler against SQLite and in-memory document stores.
type env struct {
	t        *testing.T
	db       *gorm.DB
	e        *echo.Echo
	api      *echo.Group
	users    *repositories.PostgresUserRepository
	posts    *memPosts
	routines *memRoutines
	comments *repositories.PostgresCommentRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	log := logger.Discard()

	users := repositories.NewPostgresUserRepository(db)
	follows := repositories.NewPostgresFollowRepository(db)
	likes := repositories.NewPostgresLikeRepository(db)
	comments := repositories.NewPostgresCommentRepository(db)
	notifications := repositories.NewPostgresNotificationRepository(db)
	settings := repositories.NewPostgresSettingsRepository(db)
	posts := newMemPosts()
	routines := newMemRoutines()
	service := notify.NewService(notifications, users, nil, nil, log)

	e := echo.New()
	e.Validator = validators.NewValidator()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, err := strconv.ParseUint(c.Request().Header.Get(testUserHeader), 10, 32); err == nil {
				c.Set(middleware.UserIDKey, uint(id))
			}
			return next(c)
		}
	})

	NewUserHandler(users, follows).RegisterProfileRoutes(api)
	NewFollowHandler(follows, users, service).RegisterFollowRoutes(api)
	NewPostHandler(posts).RegisterPostRoutes(api)
	NewLikeHandler(likes, posts, comments, service).RegisterLikeRoutes(api)
	NewCommentHandler(comments, posts, users, service).RegisterCommentRoutes(api)
	NewRoutineHandler(routines, likes, service).RegisterRoutineRoutes(api)
	NewNotificationHandler(notifications, settings, service).RegisterNotificationRoutes(api)

	return &env{t: t, db: db, e: e, api: api, users: users, posts: posts, routines: routines, comments: comments}
}

func (v *env) user(username string) *models.User {
	v.t.Helper()
	u := &models.User{Username: username, Name: username, Email: username + "@example.com"}
	require.NoError(v.t, v.db.Create(u).Error)
	return u
}

func (v *env) post(owner uint) string {
	v.t.Helper()
	p := &models.Post{UserID: owner, Content: "leg day"}
	require.NoError(v.t, v.posts.CreatePost(context.Background(), p))
	return p.ID.Hex()
}

func (v *env) routine(owner uint, name string) string {
	v.t.Helper()
	r := &models.Routine{UserID: owner, Name: name, Exercises: []models.Exercise{{Name: "Squat", Sets: 5, Reps: 5}}}
	require.NoError(v.t, v.routines.CreateRoutine(context.Background(), r))
	return r.ID.Hex()
}

func (v *env) notifications(recipient uint) []models.Notification {
	v.t.Helper()
	var ns []models.Notification
	require.NoError(v.t, v.db.Where("recipient_id = ?", recipient).Order("created_at").Find(&ns).Error)
	return ns
}

func do(e *echo.Echo, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != 0 {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(userID), 10))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func (v *env) do(method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	return do(v.e, method, path, userID, body)
}

// data decodes the "data" member of a success envelope into out.
func data(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.True(t, envelope.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
