package bedrock

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// Kind classifies a failed model call so callers can branch on the failure
// category instead of matching error strings.
type Kind int

const (
	// KindThrottled is a rate-limit signal; the call may succeed on retry.
	KindThrottled Kind = iota
	// KindValidation is a rejected payload; retrying will not help.
	KindValidation
	// KindConnectivity covers client construction, network, and any other
	// unexpected failure.
	KindConnectivity
)

func (k Kind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindValidation:
		return "validation"
	default:
		return "connectivity"
	}
}

// Classify maps a model-call error to its failure category.
func Classify(err error) Kind {
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return KindThrottled
	}
	var quota *types.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return KindThrottled
	}
	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return KindValidation
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return KindThrottled
		case "ValidationException":
			return KindValidation
		}
	}
	return KindConnectivity
}
