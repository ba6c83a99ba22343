package common

import (
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/pkg/errors"

	libstrings "ekscd/internal/lib/strings"
)

// IsErrorCode reports whether err, or an error it wraps, is an AWS error with one of codes.
func IsErrorCode(err error, codes ...string) bool {
	var awsErr awserr.Error
	if !errors.As(err, &awsErr) {
		return false
	}
	return libstrings.AnyOf(awsErr.Code(), codes...)
}
