// Package storage holds the result sinks: object storage for the
// canonical run output, redis for the latest-result cache, postgres
// for run history, and elasticsearch for ad-hoc record search. Sinks
// never feed back into the engines.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

// S3API is the slice of the S3 surface the store uses.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
}

// S3Store writes one encrypted JSON object per analysis per run, under
// date-partitioned keys so results are queryable by external tooling.
type S3Store struct {
	api S3API
	cfg config.S3Config
	log logger.Logger
	now func() time.Time
}

func NewS3Store(api S3API, cfg config.S3Config, log logger.Logger) *S3Store {
	return &S3Store{api: api, cfg: cfg, log: log, now: time.Now}
}

func jsonBody(data []byte) io.Reader { return bytes.NewReader(data) }

// resultKey builds analytics/<type>/year=YYYY/month=MM/day=DD/<hhmmss>_<type>.json.
func (s *S3Store) resultKey(analysisType string, ts time.Time) string {
	prefix := s.cfg.Prefix
	if prefix == "" {
		prefix = "analytics"
	}
	return fmt.Sprintf("%s/%s/year=%d/month=%02d/day=%02d/%s_%s.json",
		prefix, analysisType,
		ts.Year(), int(ts.Month()), ts.Day(),
		ts.Format("150405"), analysisType)
}

// StoreAnalytics persists one analysis payload and returns its object key.
func (s *S3Store) StoreAnalytics(ctx context.Context, runID, analysisType string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", stderrors.NewResultStoreFailedError(analysisType, err)
	}

	key := s.resultKey(analysisType, s.now().UTC())
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               awssdk.String(s.cfg.Bucket),
		Key:                  awssdk.String(key),
		Body:                 jsonBody(data),
		ContentType:          awssdk.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"run-id":        runID,
			"analysis-type": analysisType,
		},
	})
	if err != nil {
		return "", stderrors.NewResultStoreFailedError(analysisType, err)
	}

	s.log.Info("Stored analytics results", map[string]interface{}{
		"analysis_type": analysisType,
		"bucket":        s.cfg.Bucket,
		"key":           key,
		"bytes":         len(data),
	})
	return key, nil
}

// GetLatestResults returns the newest stored object for an analysis type.
func (s *S3Store) GetLatestResults(ctx context.Context, analysisType string) (json.RawMessage, error) {
	key, err := s.latestKey(ctx, analysisType)
	if err != nil {
		return nil, err
	}

	obj, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.cfg.Bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, stderrors.NewResultStoreFailedError(analysisType, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, stderrors.NewResultStoreFailedError(analysisType, err)
	}
	return data, nil
}

func (s *S3Store) latestKey(ctx context.Context, analysisType string) (string, error) {
	keys, err := s.ListRuns(ctx, analysisType, 0)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", stderrors.NewResultNotFoundError(analysisType)
	}
	return keys[0], nil
}

// ListRuns lists stored result keys for an analysis type, newest first.
// The date-partitioned layout makes lexicographic order chronological.
func (s *S3Store) ListRuns(ctx context.Context, analysisType string, limit int) ([]string, error) {
	prefix := s.cfg.Prefix
	if prefix == "" {
		prefix = "analytics"
	}

	var keys []string
	var continuation *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            awssdk.String(s.cfg.Bucket),
			Prefix:            awssdk.String(fmt.Sprintf("%s/%s/", prefix, analysisType)),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, stderrors.NewResultStoreFailedError(analysisType, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, awssdk.ToString(obj.Key))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}
