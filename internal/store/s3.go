package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
)

// S3StoreConfig holds configuration for S3 artifact storage.
type S3StoreConfig struct {
	Region          string `json:"region" yaml:"region"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint"`
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style"`
}

// S3Store keeps artifact generations as objects under
// <prefix>/generations/<id>.json with a <prefix>/current object naming
// the live generation.
type S3Store struct {
	config *S3StoreConfig
	client *s3.S3
	logger *logrus.Logger
}

// NewS3Store creates an S3 artifact store and verifies bucket access.
func NewS3Store(ctx context.Context, config *S3StoreConfig, logger *logrus.Logger) (*S3Store, error) {
	if config == nil || config.Bucket == "" {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "S3 store requires a bucket")
	}
	if logger == nil {
		logger = logrus.New()
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(config.ForcePathStyle)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeInvalidConfig,
			"failed to create AWS session")
	}

	store := &S3Store{config: config, client: s3.New(sess), logger: logger}
	if _, err := store.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(config.Bucket),
	}); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to access bucket %s", config.Bucket))
	}

	logger.WithFields(logrus.Fields{
		"region": config.Region,
		"bucket": config.Bucket,
	}).Info("Connected to S3 artifact store")
	return store, nil
}

func (s *S3Store) key(parts ...string) string {
	return path.Join(append([]string{s.config.Prefix}, parts...)...)
}

// Publish uploads the artifact set as a new generation object, then
// overwrites the current pointer. S3 object puts are atomic, so readers
// see either the old pointer or the new one.
func (s *S3Store) Publish(ctx context.Context, set *ArtifactSet) (string, error) {
	id := uuid.New().String()
	set.GenerationID = id
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(set)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to serialize artifact set")
	}

	if err := s.put(ctx, s.key("generations", id+".json"), data); err != nil {
		return "", err
	}
	if err := s.put(ctx, s.key("current"), []byte(id)); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"generation": id,
		"bucket":     s.config.Bucket,
	}).Info("Artifact generation published")
	return id, nil
}

// Load returns the generation named by the current pointer.
func (s *S3Store) Load(ctx context.Context) (*ArtifactSet, error) {
	data, err := s.get(ctx, s.key("current"))
	if err != nil {
		return nil, err
	}
	return s.LoadGeneration(ctx, strings.TrimSpace(string(data)))
}

// LoadGeneration returns one generation by ID.
func (s *S3Store) LoadGeneration(ctx context.Context, id string) (*ArtifactSet, error) {
	data, err := s.get(ctx, s.key("generations", id+".json"))
	if err != nil {
		return nil, err
	}
	var set ArtifactSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to deserialize artifact generation %s", id))
	}
	return &set, nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			fmt.Sprintf("failed to upload %s", key))
	}
	return nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.NewNotFoundError(fmt.Sprintf("object %s does not exist", key))
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to download %s", key))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to read %s", key))
	}
	return data, nil
}
