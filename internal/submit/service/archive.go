package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"codequest/internal/common/storage"
	"codequest/internal/submit/repository"
	appErr "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const archiveContentType = "application/zstd"

// archiver stores zstd-compressed submission sources in object storage.
// A nil archiver does nothing.
type archiver struct {
	storage storage.ObjectStorage
	bucket  string
	prefix  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newArchiver(store storage.ObjectStorage, bucket, prefix string) (*archiver, error) {
	if store == nil {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	return &archiver{storage: store, bucket: bucket, prefix: prefix, encoder: encoder, decoder: decoder}, nil
}

func (a *archiver) objectKey(problemID, submissionID string) string {
	return fmt.Sprintf("%s/%s/%s.zst", a.prefix, problemID, submissionID)
}

func (a *archiver) put(ctx context.Context, submission *repository.Submission) error {
	if a == nil {
		return nil
	}
	payload := a.encoder.EncodeAll([]byte(submission.Code), nil)
	key := a.objectKey(submission.ProblemID, submission.ID)
	return a.storage.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), archiveContentType)
}

func (a *archiver) get(ctx context.Context, problemID, submissionID string) (string, error) {
	if a == nil {
		return "", appErr.New(appErr.ServiceUnavailable).WithMessage("source archive is not configured")
	}
	rc, err := a.storage.GetObject(ctx, a.bucket, a.objectKey(problemID, submissionID))
	if err != nil {
		return "", err
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	source, err := a.decoder.DecodeAll(payload, nil)
	if err != nil {
		return "", fmt.Errorf("decode archived source failed: %w", err)
	}
	return string(source), nil
}

func (a *archiver) removeProblem(ctx context.Context, problemID string) {
	if a == nil {
		return
	}
	removed, err := a.storage.RemovePrefix(ctx, a.bucket, fmt.Sprintf("%s/%s/", a.prefix, problemID))
	if err != nil {
		logger.Warn(ctx, "remove archived sources failed", zap.String("problem_id", problemID), zap.Error(err))
		return
	}
	logger.Info(ctx, "archived sources removed", zap.String("problem_id", problemID), zap.Int("objects", removed))
}

func (a *archiver) removeSubmissions(ctx context.Context, submissions []repository.Submission) {
	if a == nil {
		return
	}
	for i := range submissions {
		key := a.objectKey(submissions[i].ProblemID, submissions[i].ID)
		if _, err := a.storage.RemovePrefix(ctx, a.bucket, key); err != nil {
			logger.Warn(ctx, "remove archived source failed", zap.String("submission_id", submissions[i].ID), zap.Error(err))
		}
	}
}
