package config

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectTimeout = 10 * time.Second

// DB holds the store connections. Mongo and Redis are nil when not configured.
type DB struct {
	SQL           *gorm.DB
	Mongo         *mongo.Client
	MongoDatabase string
	Redis         *redis.Client

	log *logger.Logger
}

// InitDB opens the relational store and, when configured, MongoDB and Redis.
func InitDB(cfg *Config, log *logger.Logger) (*DB, error) {
	db := &DB{MongoDatabase: cfg.MongoDatabase, log: log}

	sqlDB, err := initSQL(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	db.SQL = sqlDB
	if cfg.UsesPostgres() {
		log.Info("Successfully connected to PostgreSQL!")
	} else {
		log.Info("Using SQLite database at %s", cfg.DatabaseURL)
	}

	if cfg.MongoURI != "" {
		if db.Mongo, err = initMongo(cfg.MongoURI); err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.Info("Successfully connected to MongoDB!")
	}

	if cfg.RedisURL != "" {
		if db.Redis, err = initRedis(cfg.RedisURL); err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("Successfully connected to Redis!")
	}

	return db, nil
}

// initSQL opens Postgres for a Postgres DSN and SQLite for anything else
func initSQL(cfg *Config) (*gorm.DB, error) {
	dialector := sqlite.Open(cfg.DatabaseURL)
	if cfg.UsesPostgres() {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if !cfg.UsesPostgres() {
		// SQLite allows one writer
		sqlDB.SetMaxOpenConns(1)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func initRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Documents returns the MongoDB database, or nil when Mongo is not configured.
func (db *DB) Documents() *mongo.Database {
	if db.Mongo == nil {
		return nil
	}
	return db.Mongo.Database(db.MongoDatabase)
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			db.log.Error("Error getting SQL DB from GORM: %v", err)
		} else if err := sqlDB.Close(); err != nil {
			db.log.Error("Error closing database connection: %v", err)
		} else {
			db.log.Info("Database connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.Error("Error closing MongoDB connection: %v", err)
		} else {
			db.log.Info("MongoDB connection closed.")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.log.Error("Error closing Redis connection: %v", err)
		} else {
			db.log.Info("Redis connection closed.")
		}
	}
}
