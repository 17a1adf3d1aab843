package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcckpt/blobstore"
)

// mockDDBClient is an in-memory DynamoDB table keyed by base_uri:version.
type mockDDBClient struct {
	mu       sync.RWMutex
	items    map[string]map[string]types.AttributeValue
	queryErr error
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items: make(map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}

	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}

	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}
	descending := !aws.ToBool(params.ScanIndexForward)
	sort.Slice(items, func(i, j int) bool {
		if descending {
			return version(items[i]) > version(items[j])
		}
		return version(items[i]) < version(items[j])
	})

	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestDDBCommitStore(ddb *mockDDBClient, baseURI string) *DDBCommitStore {
	return NewDDBCommitStore(NewStore(new(MockS3Client), "test-bucket", "test/"), ddb, "mcckpt-commits", baseURI)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	version, err := store.Commit(ctx, "checkpoint-000000001000.dat")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	latest, name, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest)
	assert.Equal(t, "checkpoint-000000001000.dat", name)

	item := ddb.items["s3://test-bucket/test/:1"]
	require.NotNil(t, item)
	assert.Equal(t, "2024-03-01T12:00:00Z", item["committed_at"].(*types.AttributeValueMemberS).Value)
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	for i := 1; i <= 12; i++ {
		version, err := store.Commit(ctx, fmt.Sprintf("checkpoint-%012d.dat", i*100))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), version)
	}

	latest, name, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), latest)
	assert.Equal(t, "checkpoint-000000001200.dat", name)
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	_, err := store.Commit(ctx, "checkpoint-000000000100.dat")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := store.Commit(ctx, fmt.Sprintf("checkpoint-%012d.dat", (id+2)*100))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrConcurrentModification):
				conflicts++
			case err == nil:
				successes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	wg.Wait()
	assert.Positive(t, successes, "at least one writer should succeed")
	assert.Equal(t, 5, successes+conflicts)

	latest, _, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1+successes), latest)
}

func TestDDBCommitStore_LatestBeforeCommit(t *testing.T) {
	ddb := newMockDDBClient()
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	version, name, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.Empty(t, name)
}

func TestDDBCommitStore_QueryError(t *testing.T) {
	ddb := newMockDDBClient()
	ddb.queryErr = errors.New("throttled")
	store := newTestDDBCommitStore(ddb, "s3://test-bucket/test/")

	_, err := store.Commit(context.Background(), "checkpoint.dat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Empty(t, ddb.items)
}

func TestDDBCommitStore_DefaultBaseURI(t *testing.T) {
	store := newTestDDBCommitStore(newMockDDBClient(), "")
	assert.Equal(t, "s3://test-bucket/test/", store.baseURI)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()

	store1 := newTestDDBCommitStore(ddb, "s3://bucket-a/path/")
	store2 := newTestDDBCommitStore(ddb, "s3://bucket-b/path/")

	_, err := store1.Commit(ctx, "checkpoint-a.dat")
	require.NoError(t, err)
	_, err = store2.Commit(ctx, "checkpoint-b.dat")
	require.NoError(t, err)
	_, err = store2.Commit(ctx, "checkpoint-b2.dat")
	require.NoError(t, err)

	v1, name1, err := store1.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1)
	assert.Equal(t, "checkpoint-a.dat", name1)

	v2, name2, err := store2.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)
	assert.Equal(t, "checkpoint-b2.dat", name2)
}

func TestDDBCommitStore_ImplementsCommitter(t *testing.T) {
	var c blobstore.Committer = newTestDDBCommitStore(newMockDDBClient(), "")
	assert.NotNil(t, c)
}
