package applications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "applications"

// MongoRepo implements Repo on a Mongo collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the indexes List and ListNeedingScore rely on.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_job_created"),
		},
		{
			Keys:    bson.D{{Key: "match_percentage", Value: -1}},
			Options: options.Index().SetName("by_match"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "bookmarked", Value: 1}},
			Options: options.Index().SetName("by_status_bookmark"),
		},
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, app Application) error {
	_, err := r.col.InsertOne(ctx, clone(app))
	return err
}

func (r *MongoRepo) Get(ctx context.Context, id string) (Application, error) {
	var app Application
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Application{}, ErrNotFound
	}
	if err != nil {
		return Application{}, err
	}
	return clone(app), nil
}

func (r *MongoRepo) List(ctx context.Context, f ListFilter) ([]Application, error) {
	return r.find(ctx, listFilterDoc(f), listFindOptions(f))
}

func (r *MongoRepo) ListNeedingScore(ctx context.Context) ([]Application, error) {
	return r.find(ctx, needsScoreDoc(), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *MongoRepo) Replace(ctx context.Context, app Application, expected int64) (Application, error) {
	var updated Application
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": app.ID, "revision": expected},
		replaceDoc(app),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return clone(updated), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Application{}, err
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": app.ID})
	if err != nil {
		return Application{}, err
	}
	if n == 0 {
		return Application{}, ErrNotFound
	}
	return Application{}, ErrRevisionConflict
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Application, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = clone(out[i])
	}
	return out, nil
}

func listFilterDoc(f ListFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" && f.Status != StatusFilterAll {
		filter["status"] = f.Status
	}
	if f.BookmarkedOnly {
		filter["bookmarked"] = true
	}
	if f.JobID != "" {
		filter["job_id"] = f.JobID
	}
	return filter
}

// listFindOptions maps the sort order. Mongo sorts null below numbers, which
// matches the memory and Postgres ordering of missing scores.
func listFindOptions(f ListFilter) *options.FindOptions {
	var sort bson.D
	switch f.Sort {
	case SortOldest:
		sort = bson.D{{Key: "created_at", Value: 1}}
	case SortMatchHigh:
		sort = bson.D{{Key: "match_percentage", Value: -1}, {Key: "created_at", Value: -1}}
	case SortMatchLow:
		sort = bson.D{{Key: "match_percentage", Value: 1}, {Key: "created_at", Value: -1}}
	default:
		sort = bson.D{{Key: "created_at", Value: -1}}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().SetSort(sort).SetLimit(int64(limit))
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return opts
}

func needsScoreDoc() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"match_percentage": bson.M{"$exists": false}},
		bson.M{"match_percentage": nil},
		bson.M{"match_percentage": 0},
	}}
}

func replaceDoc(app Application) bson.M {
	set := bson.M{
		"matched_skills": nonNil(app.MatchedSkills),
		"ai_summary":     app.AISummary,
		"status":         app.Status,
		"bookmarked":     app.Bookmarked,
		"updated_at":     app.UpdatedAt.UTC(),
	}
	if app.MatchPercentage != nil {
		set["match_percentage"] = *app.MatchPercentage
	} else {
		set["match_percentage"] = nil
	}
	if app.Scoring != nil {
		set["scoring"] = app.Scoring
	}
	return bson.M{
		"$set": set,
		"$inc": bson.M{"revision": 1},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Repo = (*MongoRepo)(nil)
