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

// UserRepository stores ledger accounts in "users" and the per-user
// resolution index in "resolutions", one document per (user, ad) with a
// composite _id so the primary key enforces at-most-once.
type UserRepository struct {
	users       *mongo.Collection
	resolutions *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:       db.Collection(collectionUsers),
		resolutions: db.Collection(collectionResolutions),
	}
}

// Bootstrap inserts u with $setOnInsert so an existing account is never
// overwritten, even when two first requests race.
func (r *UserRepository) Bootstrap(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$setOnInsert": bson.M{
		"email":        u.Email,
		"display_name": u.DisplayName,
		"photo_url":    u.PhotoURL,
		"credits":      u.Credits,
		"plan":         u.Plan,
		"created_at":   u.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing domain.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, update, opts).Decode(&existing)
	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		created := *u
		return &created, true, nil
	case mongo.IsDuplicateKeyError(err):
		// Lost the upsert race; the winner's record stands.
		found, ferr := r.FindByID(ctx, u.ID)
		return found, false, ferr
	default:
		return nil, false, fmt.Errorf("bootstrap user: %w", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	if err := r.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// DecrementCreditsIfSufficient carries the balance precondition in the filter,
// so the check and the decrement are one server-side operation.
func (r *UserRepository) DecrementCreditsIfSufficient(ctx context.Context, userID string, amount int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": userID, "credits": bson.M{"$gte": amount}}
	update := bson.M{"$inc": bson.M{"credits": -amount}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"credits": 1})

	var u domain.User
	err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	if err == nil {
		return u.Credits, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, classify(err)
	}

	n, cerr := r.users.CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if cerr != nil {
		return 0, cerr
	}
	if n == 0 {
		return 0, domain.ErrUserNotFound
	}
	return 0, domain.ErrInsufficientCredits
}

func (r *UserRepository) IncrementCredits(ctx context.Context, userID string, amount int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"credits": 1})

	var u domain.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$inc": bson.M{"credits": amount}}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrUserNotFound
		}
		return 0, classify(err)
	}
	return u.Credits, nil
}

// IncrementCreditsOnce guards the $inc with the account's key window. The
// check, the increment and the key push commit as one document update.
func (r *UserRepository) IncrementCreditsOnce(ctx context.Context, userID string, amount int64, opKey string) (int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$inc":  bson.M{"credits": amount},
		"$push": pushApplied(opKey),
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"credits": 1})

	var u domain.User
	err := r.users.FindOneAndUpdate(ctx, onceFilter(userID, opKey), update, opts).Decode(&u)
	if err == nil {
		return u.Credits, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, classify(err)
	}

	// No match: the account is missing or the key was already applied.
	existing, ferr := r.FindByID(ctx, userID)
	if ferr != nil {
		return 0, false, ferr
	}
	return existing.Credits, false, nil
}

type resolutionDoc struct {
	Key        string         `bson:"_id"`
	UserID     string         `bson:"user_id"`
	AdID       string         `bson:"ad_id"`
	Outcome    domain.Outcome `bson:"outcome"`
	ResolvedAt time.Time      `bson:"resolved_at"`
}

// AddResolution inserts the (user, ad) document. A duplicate key means an
// earlier call already resolved the pair.
func (r *UserRepository) AddResolution(ctx context.Context, res domain.Resolution) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := resolutionDoc{
		Key:        domain.ResolutionKey(res.UserID, res.AdID),
		UserID:     res.UserID,
		AdID:       res.AdID,
		Outcome:    res.Outcome,
		ResolvedAt: res.ResolvedAt,
	}
	if _, err := r.resolutions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

func (r *UserRepository) ResolvedAmong(ctx context.Context, userID string, adIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(adIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	keys := make([]string, len(adIDs))
	for i, id := range adIDs {
		keys[i] = domain.ResolutionKey(userID, id)
	}
	cur, err := r.resolutions.Find(ctx,
		bson.M{"_id": bson.M{"$in": keys}},
		options.Find().SetProjection(bson.M{"ad_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	var docs []resolutionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.AdID] = true
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
	set := bson.M{}
	if upd.DisplayName != nil {
		set["display_name"] = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		set["photo_url"] = *upd.PhotoURL
	}
	if len(set) == 0 {
		return r.FindByID(ctx, userID)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) SetPlan(ctx context.Context, userID string, plan domain.Plan) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"plan": plan}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the secondary index on the resolution collection.
// Users and resolutions are keyed by _id.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.resolutions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "resolved_at", Value: -1}},
	})
	return err
}
