package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RoutineRepository defines the interface for routine documents
type RoutineRepository interface {
	CreateRoutine(ctx context.Context, routine *models.Routine) error
	GetRoutineByID(ctx context.Context, id string) (*models.Routine, error)
	IncrementLikesCount(ctx context.Context, routineID string, delta int) error
	IncrementSavesCount(ctx context.Context, routineID string, delta int) error
}

// MongoRoutineRepository implements RoutineRepository for MongoDB
type MongoRoutineRepository struct {
	collection *mongo.Collection
}

// NewMongoRoutineRepository creates a new MongoRoutineRepository
func NewMongoRoutineRepository(db *mongo.Database) *MongoRoutineRepository {
	return &MongoRoutineRepository{collection: db.Collection("routines")}
}

func (r *MongoRoutineRepository) CreateRoutine(ctx context.Context, routine *models.Routine) error {
	now := time.Now().UTC()
	routine.ID = primitive.NewObjectID()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, routine)
	return err
}

func (r *MongoRoutineRepository) GetRoutineByID(ctx context.Context, id string) (*models.Routine, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var routine models.Routine
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&routine); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &routine, nil
}

func (r *MongoRoutineRepository) IncrementLikesCount(ctx context.Context, routineID string, delta int) error {
	return incrementField(ctx, r.collection, routineID, "likes_count", delta)
}

func (r *MongoRoutineRepository) IncrementSavesCount(ctx context.Context, routineID string, delta int) error {
	return incrementField(ctx, r.collection, routineID, "saves_count", delta)
}
