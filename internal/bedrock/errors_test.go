package bedrock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

func TestClassifyTypedExceptions(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"throttling", &types.ThrottlingException{Message: aws.String("slow down")}, KindThrottled},
		{"quota", &types.ServiceQuotaExceededException{Message: aws.String("limit")}, KindThrottled},
		{"validation", &types.ValidationException{Message: aws.String("bad payload")}, KindValidation},
		{"plain", errors.New("connection refused"), KindConnectivity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyWrappedError(t *testing.T) {
	err := fmt.Errorf("invoke model: %w", &types.ThrottlingException{Message: aws.String("busy")})
	if got := Classify(err); got != KindThrottled {
		t.Fatalf("Classify() = %v, want KindThrottled", got)
	}
}

func TestClassifyGenericAPIError(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "429"}
	if got := Classify(err); got != KindThrottled {
		t.Fatalf("Classify() = %v, want KindThrottled", got)
	}
}

func TestKindString(t *testing.T) {
	if KindThrottled.String() != "throttled" || KindValidation.String() != "validation" || KindConnectivity.String() != "connectivity" {
		t.Fatalf("unexpected Kind strings")
	}
}
