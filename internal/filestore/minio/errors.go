package minio

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/rowx/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
)

// codeKinds maps S3 error codes to error kinds. Codes are checked before
// status, since some arrive with a 200-range status.
var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket":          errs.ErrKindNotFound,
	"NoSuchKey":             errs.ErrKindNotFound,
	"AccessDenied":          errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"InvalidBucketName":     errs.ErrKindInvalidInput,
	"InvalidObjectName":     errs.ErrKindInvalidInput,
	"KeyTooLongError":       errs.ErrKindInvalidInput,
	"EntityTooLarge":        errs.ErrKindInvalidInput,
	"RequestTimeout":        errs.ErrKindTimeout,
	"SlowDown":              errs.ErrKindTimeout,
}

// mapError translates a MinIO SDK error into a *errs.Error, the same way
// the database packages classify driver errors.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if kind, ok := codeKinds[resp.Code]; ok {
			return errs.Wrap(kind, msg, err)
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case http.StatusBadRequest:
			return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
		}
	}

	// Anything else is a connection or I/O failure
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
