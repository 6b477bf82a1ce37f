package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adrecipro/adquiz/internal/core/domain"
	"github.com/adrecipro/adquiz/internal/core/ports"
)

const defaultCandidateLimit = 50

// AdRepository stores advertisements with their counters inlined, so every
// counter change is a single $inc on one document.
type AdRepository struct {
	col *mongo.Collection
}

var _ ports.AdRepository = (*AdRepository)(nil)

func NewAdRepository(db *mongo.Database) *AdRepository {
	return &AdRepository{col: db.Collection(collectionAds)}
}

func (r *AdRepository) Create(ctx context.Context, ad *domain.Advertisement) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, ad)
	return err
}

func (r *AdRepository) FindByID(ctx context.Context, adID string) (*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ad domain.Advertisement
	if err := r.col.FindOne(ctx, bson.M{"_id": adID}).Decode(&ad); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAdNotFound
		}
		return nil, err
	}
	return &ad, nil
}

func counterInc(d domain.CounterDelta) bson.M {
	inc := bson.M{}
	if d.Impressions != 0 {
		inc["impressions"] = d.Impressions
	}
	if d.Clicks != 0 {
		inc["clicks"] = d.Clicks
	}
	if d.Attempts != 0 {
		inc["attempts"] = d.Attempts
	}
	if d.CorrectAnswers != 0 {
		inc["correct_answers"] = d.CorrectAnswers
	}
	return inc
}

// IncrementCounters applies every non-zero field of d in one $inc.
func (r *AdRepository) IncrementCounters(ctx context.Context, adID string, d domain.CounterDelta) error {
	if d.IsZero() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": adID}, bson.M{"$inc": counterInc(d)})
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAdNotFound
	}
	return nil
}

// IncrementCountersOnce applies d and records opKey in the same update.
func (r *AdRepository) IncrementCountersOnce(ctx context.Context, adID string, d domain.CounterDelta, opKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$push": pushApplied(opKey)}
	if inc := counterInc(d); len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := r.col.UpdateOne(ctx, onceFilter(adID, opKey), update)
	if err != nil {
		return false, classify(err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": adID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, domain.ErrAdNotFound
	}
	return false, nil
}

func (r *AdRepository) SetActive(ctx context.Context, adID, ownerID string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": adID, "owner_id": ownerID},
		bson.M{"$set": bson.M{"is_active": active}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.missOrForeign(ctx, adID)
	}
	return nil
}

func (r *AdRepository) Delete(ctx context.Context, adID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": adID, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return r.missOrForeign(ctx, adID)
	}
	return nil
}

// missOrForeign explains why an owner-scoped write matched nothing.
func (r *AdRepository) missOrForeign(ctx context.Context, adID string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": adID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAdNotFound
	}
	return domain.ErrNotOwner
}

// FindCandidates samples visible ads in the requested language. When a viewer
// is given, ads the viewer already resolved are dropped with a $lookup on the
// resolution collection's composite key.
func (r *AdRepository) FindCandidates(ctx context.Context, q ports.CandidateQuery) ([]*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, candidatePipeline(q))
	if err != nil {
		return nil, fmt.Errorf("candidate pipeline: %w", err)
	}
	out := make([]*domain.Advertisement, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return out, nil
}

func candidatePipeline(q ports.CandidateQuery) mongo.Pipeline {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	match := bson.M{
		"language":   q.Language,
		"is_active":  bson.M{"$ne": false},
		"expires_at": bson.M{"$gt": q.Now.UTC()},
	}
	if q.ExcludeOwnerID != "" {
		match["owner_id"] = bson.M{"$ne": q.ExcludeOwnerID}
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	if q.ViewerID != "" {
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{
				"resolution_key": bson.M{"$concat": bson.A{q.ViewerID + ":", "$_id"}},
			}}},
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         collectionResolutions,
				"localField":   "resolution_key",
				"foreignField": "_id",
				"as":           "resolved",
			}}},
			bson.D{{Key: "$match", Value: bson.M{"resolved": bson.M{"$size": 0}}}},
			bson.D{{Key: "$project", Value: bson.M{"resolution_key": 0, "resolved": 0}}},
		)
	}
	return append(pipeline, bson.D{{Key: "$sample", Value: bson.M{"size": limit}}})
}

func (r *AdRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Advertisement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Advertisement, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUpTo stops counting at limit, which is all the early-adopter check needs.
func (r *AdRepository) CountUpTo(ctx context.Context, limit int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Count()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.col.CountDocuments(ctx, bson.M{}, opts)
}

// EnsureIndexes creates the feed and dashboard indexes.
func (r *AdRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "language", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
