package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"aptitude-service/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// These run only when a backing server is configured, e.g.
// TEST_REDIS_ADDR=localhost:6379 TEST_MONGODB_URI=mongodb://localhost:27017 go test ./...

func redisStoreForTest(t *testing.T) *RedisStore {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedisStore(client, "aptitude:test:"+uuid.NewString()+":", time.Minute)
}

func mongoStoreForTest(t *testing.T) *MongoStore {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("aptitude_service_test")
	name := "tests_" + uuid.NewString()
	t.Cleanup(func() {
		_ = db.Collection(name).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return NewMongoStore(db, name)
}

func exerciseStore(t *testing.T, s TestStore) {
	ctx := context.Background()
	test := sampleTest("t-" + uuid.NewString())

	require.NoError(t, s.Save(ctx, test))

	got, err := s.Get(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, test.ID, got.ID)
	assert.Equal(t, test.Questions[0].Options, got.Questions[0].Options)

	hard := models.DifficultyHard
	_, err = s.Update(ctx, "missing-"+uuid.NewString(), models.TestUpdate{Difficulty: &hard})
	assert.ErrorIs(t, err, ErrTestNotFound)

	updated, err := s.Update(ctx, test.ID, models.TestUpdate{Difficulty: &hard})
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyHard, updated.Difficulty)
	assert.Equal(t, test.Topics, updated.Topics)

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				assert.NoError(t, s.AppendResponse(ctx, test.ID, fmt.Sprintf("user%d", u), models.Response{QuestionIndex: i}))
			}
		}(u)
	}
	wg.Wait()

	got, err = s.Get(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, got.Responses, 4)
	for _, list := range got.Responses {
		assert.Len(t, list, 5)
	}
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, redisStoreForTest(t))
}

func TestMongoStore(t *testing.T) {
	exerciseStore(t, mongoStoreForTest(t))
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}
