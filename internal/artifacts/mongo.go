package artifacts

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ContentCollection  = "resume_contents"
	AnalysisCollection = "resume_analysis"
)

// MongoStore keeps artifacts in two collections keyed by _id = resume id.
type MongoStore struct {
	contents *mongo.Collection
	analyses *mongo.Collection
}

// NewMongoStore binds the store to db. The client lifecycle stays with the caller.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		contents: db.Collection(ContentCollection),
		analyses: db.Collection(AnalysisCollection),
	}
}

// EnsureIndexes creates the secondary owner indexes on both collections.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetName("user_id_1"),
	}
	for _, coll := range []*mongo.Collection{s.contents, s.analyses} {
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return classify("create index "+coll.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) PutContent(ctx context.Context, resumeID string, doc ContentArtifact) error {
	normalized, err := normalizeContent(resumeID, doc)
	if err != nil {
		return err
	}
	return replace(ctx, s.contents, normalized.ID, normalized)
}

func (s *MongoStore) GetContent(ctx context.Context, resumeID string) (ContentArtifact, bool, error) {
	var doc ContentArtifact
	found, err := findByID(ctx, s.contents, lookupKey(resumeID), &doc)
	return doc, found, err
}

func (s *MongoStore) UpdateContent(ctx context.Context, resumeID string, fields map[string]any) error {
	var patch contentPatch
	key, err := decodePatch(resumeID, fields, &patch)
	if err != nil {
		return err
	}
	return setFields(ctx, s.contents, key, patch)
}

func (s *MongoStore) PutAnalysis(ctx context.Context, resumeID string, doc AnalysisArtifact) error {
	normalized, err := normalizeAnalysis(resumeID, doc)
	if err != nil {
		return err
	}
	return replace(ctx, s.analyses, normalized.ID, normalized)
}

func (s *MongoStore) GetAnalysis(ctx context.Context, resumeID string) (AnalysisArtifact, bool, error) {
	var doc AnalysisArtifact
	found, err := findByID(ctx, s.analyses, lookupKey(resumeID), &doc)
	return doc, found, err
}

func (s *MongoStore) UpdateAnalysis(ctx context.Context, resumeID string, fields map[string]any) error {
	var patch analysisPatch
	key, err := decodePatch(resumeID, fields, &patch)
	if err != nil {
		return err
	}
	return setFields(ctx, s.analyses, key, patch)
}

func replace(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return classify("replace "+coll.Name(), err)
	}
	return nil
}

func findByID(ctx context.Context, coll *mongo.Collection, id string, out any) (bool, error) {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, classify("find "+coll.Name(), err)
	}
	return true, nil
}

func setFields(ctx context.Context, coll *mongo.Collection, id string, patch any) error {
	raw, err := bson.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	if len(set) == 0 {
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return classify("count "+coll.Name(), err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return classify("update "+coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// classify wraps network and timeout failures as transient.
func classify(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientStoreError{Op: op, Err: err}
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")) {
		return &TransientStoreError{Op: op, Err: err}
	}
	return fmt.Errorf("artifact store %s: %w", op, err)
}

var _ Store = (*MongoStore)(nil)
