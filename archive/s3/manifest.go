package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/mapgraph/archive"
)

// DDBClient is the subset of the DynamoDB API the manifest store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ManifestStore implements archive.ManifestStore with manifest bodies in S3
// and a DynamoDB row per version for atomic commits.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix
//   - Sort key: version (number) - monotonically increasing
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name mapgraph-manifests \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type ManifestStore struct {
	blobs     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewManifestStore creates a manifest store. baseURI ("s3://bucket/prefix")
// is the DynamoDB partition key.
func NewManifestStore(blobs *Store, ddbClient DDBClient, tableName, baseURI string) *ManifestStore {
	return &ManifestStore{
		blobs:     blobs,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func manifestName(version int64) string {
	return fmt.Sprintf("manifests/%020d.json", version)
}

// Commit implements archive.ManifestStore. The body is uploaded to S3 first,
// then the version row is claimed through a conditional write; a lost race
// returns archive.ErrConcurrentCommit.
func (m *ManifestStore) Commit(ctx context.Context, manifest []byte) (int64, error) {
	current, err := m.latestVersion(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	name := manifestName(next)
	if err := m.blobs.Put(ctx, name, manifest); err != nil {
		return 0, fmt.Errorf("s3: upload manifest: %w", err)
	}

	_, err = m.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri":      &ddbtypes.AttributeValueMemberS{Value: m.baseURI},
			"version":       &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)},
			"manifest_path": &ddbtypes.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return 0, archive.ErrConcurrentCommit
		}
		return 0, fmt.Errorf("s3: commit manifest version: %w", err)
	}
	return next, nil
}

// Latest implements archive.ManifestStore.
func (m *ManifestStore) Latest(ctx context.Context) ([]byte, int64, error) {
	version, path, err := m.latest(ctx)
	if err != nil {
		return nil, 0, err
	}
	if version == 0 {
		return nil, 0, archive.ErrNotFound
	}
	data, err := archive.ReadAll(ctx, m.blobs, path)
	if err != nil {
		return nil, 0, err
	}
	return data, version, nil
}

func (m *ManifestStore) latestVersion(ctx context.Context) (int64, error) {
	version, _, err := m.latest(ctx)
	return version, err
}

func (m *ManifestStore) latest(ctx context.Context) (int64, string, error) {
	resp, err := m.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(m.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: m.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query manifest versions: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	versionAttr, ok := resp.Items[0]["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute")
	}
	pathAttr, ok := resp.Items[0]["manifest_path"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid manifest_path attribute")
	}

	version, err := strconv.ParseInt(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse version: %w", err)
	}
	return version, pathAttr.Value, nil
}
