package jobs

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "jobs"

// MongoRepo implements Repo on a Mongo collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the listing index.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("by_created"),
	})
	return err
}

func (r *MongoRepo) Create(ctx context.Context, job Job) error {
	job.Requirements = nonNil(job.Requirements)
	_, err := r.col.InsertOne(ctx, job)
	return err
}

func (r *MongoRepo) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Requirements = nonNil(job.Requirements)
	return job, nil
}

func (r *MongoRepo) List(ctx context.Context) ([]Job, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Job{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Requirements = nonNil(out[i].Requirements)
	}
	return out, nil
}

func (r *MongoRepo) Update(ctx context.Context, job Job) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": job.ID}, updateDoc(job))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
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

func updateDoc(job Job) bson.M {
	return bson.M{"$set": bson.M{
		"title":        job.Title,
		"description":  job.Description,
		"requirements": nonNil(job.Requirements),
		"updated_at":   job.UpdatedAt.UTC(),
	}}
}

var _ Repo = (*MongoRepo)(nil)
