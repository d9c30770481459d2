package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mapgraph/archive"
)

// mockS3Client is an in-memory S3 mock.
type mockS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) HeadObject(_ context.Context, params *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &awss3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}

	body := data
	if params.Range != nil {
		var start, end int64
		if _, err := fmt.Sscanf(aws.ToString(params.Range), "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		body = data[start : end+1]
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, params *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(params.Key)] = data
	return &awss3.PutObjectOutput{}, nil
}

// Multipart methods satisfy manager.UploadAPIClient; the payloads in these
// tests stay below the part size, so only PutObject is exercised.
func (m *mockS3Client) CreateMultipartUpload(context.Context, *awss3.CreateMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("mock: multipart not supported")
}

func (m *mockS3Client) UploadPart(context.Context, *awss3.UploadPartInput, ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, errors.New("mock: multipart not supported")
}

func (m *mockS3Client) CompleteMultipartUpload(context.Context, *awss3.CompleteMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("mock: multipart not supported")
}

func (m *mockS3Client) AbortMultipartUpload(context.Context, *awss3.AbortMultipartUploadInput, ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("mock: multipart not supported")
}

func (m *mockS3Client) DeleteObject(_ context.Context, params *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(params.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := aws.ToString(params.Prefix)
	var contents []s3types.Object
	for key := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			contents = append(contents, s3types.Object{Key: aws.String(key)})
		}
	}
	return &awss3.ListObjectsV2Output{Contents: contents}, nil
}

// mockDDBClient is an in-memory DynamoDB mock honoring the
// attribute_not_exists condition.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]ddbtypes.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]ddbtypes.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*ddbtypes.AttributeValueMemberS).Value
	version := params.Item["version"].(*ddbtypes.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil {
		if _, exists := m.items[key]; exists {
			return nil, &ddbtypes.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*ddbtypes.AttributeValueMemberS).Value

	var items []map[string]ddbtypes.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*ddbtypes.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}
	// Descending by numeric version; versions in these tests share a width.
	for i := 0; i < len(items)-1; i++ {
		for j := i + 1; j < len(items); j++ {
			vi := items[i]["version"].(*ddbtypes.AttributeValueMemberN).Value
			vj := items[j]["version"].(*ddbtypes.AttributeValueMemberN).Value
			if vi < vj {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestManifestStore() *ManifestStore {
	blobs := NewStore(newMockS3Client(), "bucket", "maps")
	return NewManifestStore(blobs, newMockDDBClient(), "mapgraph-manifests", "s3://bucket/maps")
}

func TestManifestStoreCommitAndLatest(t *testing.T) {
	ctx := context.Background()
	m := newTestManifestStore()

	_, _, err := m.Latest(ctx)
	assert.ErrorIs(t, err, archive.ErrNotFound)

	v, err := m.Commit(ctx, []byte(`{"ids":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = m.Commit(ctx, []byte(`{"ids":[1,2,3]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	data, version, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.JSONEq(t, `{"ids":[1,2,3]}`, string(data))
}

func TestManifestStoreConcurrentCommit(t *testing.T) {
	ctx := context.Background()

	ddb := newMockDDBClient()
	blobs := NewStore(newMockS3Client(), "bucket", "maps")
	m := NewManifestStore(blobs, ddb, "tbl", "s3://bucket/maps")

	_, err := m.Commit(ctx, []byte("v1"))
	require.NoError(t, err)

	// Another writer claims version 2 between our read and conditional put.
	// The query is made to return the stale version 1 by racing through the
	// raw client, then Commit must lose the conditional write.
	slowDDB := &raceDDBClient{mockDDBClient: ddb}
	racy := NewManifestStore(blobs, slowDDB, "tbl", "s3://bucket/maps")

	_, err = racy.Commit(ctx, []byte("v2"))
	assert.ErrorIs(t, err, archive.ErrConcurrentCommit)
}

// raceDDBClient injects a competing commit after the version query, before
// the conditional put.
type raceDDBClient struct {
	*mockDDBClient
}

func (r *raceDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	out, err := r.mockDDBClient.Query(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}

	_, err = r.mockDDBClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: params.TableName,
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri":      &ddbtypes.AttributeValueMemberS{Value: "s3://bucket/maps"},
			"version":       &ddbtypes.AttributeValueMemberN{Value: "2"},
			"manifest_path": &ddbtypes.AttributeValueMemberS{Value: "manifests/competing.json"},
		},
	})
	return out, err
}

func TestStoreCreateStreamsUpload(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	s := NewStore(client, "bucket", "maps")

	w, err := s.Create(ctx, "sig/1.rec")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	client.mu.RLock()
	defer client.mu.RUnlock()
	assert.Equal(t, []byte("payload"), client.objects["maps/sig/1.rec"])
}

func TestStoreCreateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := newMockS3Client()
	s := NewStore(client, "bucket", "maps")

	w, err := s.Create(ctx, "sig/2.rec")
	require.NoError(t, err)
	cancel()

	_, _ = w.Write([]byte("payload"))
	assert.Error(t, w.Close())

	client.mu.RLock()
	defer client.mu.RUnlock()
	assert.NotContains(t, client.objects, "maps/sig/2.rec")
}

func TestStoreKeyPrefix(t *testing.T) {
	ctx := context.Background()
	client := newMockS3Client()
	s := NewStore(client, "bucket", "maps")

	require.NoError(t, s.Put(ctx, "sig/1.rec", []byte("x")))

	client.mu.RLock()
	defer client.mu.RUnlock()
	assert.Contains(t, client.objects, "maps/sig/1.rec")
}
