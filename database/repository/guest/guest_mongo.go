package guestRepo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"enaya/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// candidateCap bounds how many documents a single search pulls back.
const candidateCap = 200

// MongoGuestRepo implements GuestRepository over a guests collection with
// upcoming appointments embedded in each document.
type MongoGuestRepo struct {
	coll *mongo.Collection
}

// NewMongoGuestRepo creates a repository over db.guests.
func NewMongoGuestRepo(client *mongo.Client, db string) (*MongoGuestRepo, error) {
	repo := &MongoGuestRepo{coll: client.Database(db).Collection("guests")}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// newContext creates a context with the given timeout derived from parent.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoGuestRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create guest indexes: %w", err)
	}
	return nil
}

// candidateFilter narrows the collection without deciding the final match.
// Phone queries match the digits in order with any formatting between them.
func candidateFilter(q models.GuestQuery) bson.M {
	if q.ByPhone {
		parts := strings.Split(q.Digits, "")
		return bson.M{"phone": bson.M{"$regex": strings.Join(parts, `\D*`)}}
	}
	return bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(q.Raw), "$options": "i"}}
}

func (r *MongoGuestRepo) FindCandidates(ctx context.Context, q models.GuestQuery) ([]models.Guest, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetLimit(candidateCap).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, candidateFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search guests: %w", err)
	}
	defer cursor.Close(ctx)

	var guests []models.Guest
	for cursor.Next(ctx) {
		var g models.Guest
		if err := cursor.Decode(&g); err != nil {
			return nil, fmt.Errorf("failed to decode guest: %w", err)
		}
		guests = append(guests, g)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("guest cursor failed: %w", err)
	}
	return guests, nil
}

func (r *MongoGuestRepo) GetByID(ctx context.Context, id string) (*models.Guest, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var g models.Guest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch guest with id %s: %w", id, err)
	}
	return &g, nil
}
