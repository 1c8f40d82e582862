package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
	lastPut *s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.lastPut = input
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.objects[awssdk.ToString(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[awssdk.ToString(input.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: awssdk.Bool(false)}
	prefix := awssdk.ToString(input.Prefix)
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out.Contents = append(out.Contents, types.Object{Key: awssdk.String(key)})
		}
	}
	return out, nil
}

func testStore(api S3API) *S3Store {
	store := NewS3Store(api, config.S3Config{
		Enabled: true,
		Bucket:  "analytics-test",
		Prefix:  "analytics",
	}, logger.Nop())
	store.now = func() time.Time {
		return time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC)
	}
	return store
}

func TestStoreAnalyticsWritesPartitionedKey(t *testing.T) {
	fake := newFakeS3()
	store := testStore(fake)

	key, err := store.StoreAnalytics(context.Background(), "run-1", "lead_scoring",
		map[string]interface{}{"total_leads": 3})
	require.NoError(t, err)

	assert.Equal(t, "analytics/lead_scoring/year=2026/month=08/day=25/143005_lead_scoring.json", key)
	assert.Equal(t, types.ServerSideEncryptionAes256, fake.lastPut.ServerSideEncryption)
	assert.Equal(t, "application/json", awssdk.ToString(fake.lastPut.ContentType))
	assert.Equal(t, "run-1", fake.lastPut.Metadata["run-id"])

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.objects[key], &stored))
	assert.Equal(t, 3.0, stored["total_leads"])
}

func TestStoreAnalyticsFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := testStore(fake)

	_, err := store.StoreAnalytics(context.Background(), "run-1", "lead_scoring", map[string]int{})
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeResultStoreFailed, se.Code)
	assert.True(t, se.Retryable)
}

func TestGetLatestResultsPicksNewest(t *testing.T) {
	fake := newFakeS3()
	fake.objects["analytics/churn_prediction/year=2026/month=08/day=24/100000_churn_prediction.json"] = []byte(`{"day":"old"}`)
	fake.objects["analytics/churn_prediction/year=2026/month=08/day=25/090000_churn_prediction.json"] = []byte(`{"day":"new"}`)
	store := testStore(fake)

	data, err := store.GetLatestResults(context.Background(), "churn_prediction")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "new", out["day"])
}

func TestGetLatestResultsNotFound(t *testing.T) {
	store := testStore(newFakeS3())

	_, err := store.GetLatestResults(context.Background(), "pipeline_health")
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeResultNotFound, se.Code)
	assert.False(t, se.Retryable)
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	fake := newFakeS3()
	fake.objects["analytics/lead_scoring/year=2026/month=08/day=23/080000_lead_scoring.json"] = []byte(`{}`)
	fake.objects["analytics/lead_scoring/year=2026/month=08/day=24/080000_lead_scoring.json"] = []byte(`{}`)
	fake.objects["analytics/lead_scoring/year=2026/month=08/day=25/080000_lead_scoring.json"] = []byte(`{}`)
	store := testStore(fake)

	keys, err := store.ListRuns(context.Background(), "lead_scoring", 2)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Contains(t, keys[0], "day=25")
	assert.Contains(t, keys[1], "day=24")
}
