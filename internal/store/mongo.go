package store

import (
	"context"
	"errors"
	"fmt"

	"aptitude-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	Col *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{Col: db.Collection(collection)}
}

func (s *MongoStore) Backend() string {
	return "mongo"
}

func (s *MongoStore) Save(ctx context.Context, test *models.Test) error {
	if test == nil || test.ID == "" {
		return ErrInvalidTest
	}
	doc := test.Clone()
	if doc.Responses == nil {
		doc.Responses = map[string][]models.Response{}
	}
	_, err := s.Col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save test %s: %w", doc.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	err := s.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&test)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test %s: %w", id, err)
	}
	return &test, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, u models.TestUpdate) (*models.Test, error) {
	set := updateDocument(u)
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	var test models.Test
	err := s.Col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&test)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update test %s: %w", id, err)
	}
	return &test, nil
}

// AppendResponse relies on $push being atomic for a single document.
func (s *MongoStore) AppendResponse(ctx context.Context, testID, userID string, r models.Response) error {
	res, err := s.Col.UpdateOne(ctx,
		bson.M{"_id": testID},
		bson.M{"$push": bson.M{"responses." + userID: r}},
	)
	if err != nil {
		return fmt.Errorf("append response to %s: %w", testID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTestNotFound
	}
	return nil
}

func updateDocument(u models.TestUpdate) bson.M {
	set := bson.M{}
	if u.Topics != nil {
		set["topics"] = u.Topics
	}
	if u.QuestionTypes != nil {
		set["question_types"] = u.QuestionTypes
	}
	if u.Difficulty != nil {
		set["difficulty"] = *u.Difficulty
	}
	if u.TestType != nil {
		set["test_type"] = *u.TestType
	}
	if u.Questions != nil {
		set["questions"] = u.Questions
	}
	if u.Responses != nil {
		set["responses"] = u.Responses
	}
	return set
}
