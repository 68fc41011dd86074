package retry

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

var (
	retryDelaySeconds = regexp.MustCompile(`(\d+)s`)
	retryDelayInText  = regexp.MustCompile(`"?retryDelay"?\s*:\s*"(\d+)s"`)
)

// ProviderHint returns the wait a provider asked for in a RetryInfo error detail. It understands
// gRPC status details, REST error details and, as a last resort, the error text.
func ProviderHint(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	if st, ok := status.FromError(err); ok {
		for _, detail := range st.Details() {
			if info, ok := detail.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
				return time.Duration(info.GetRetryDelay().GetSeconds()) * time.Second, true
			}
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, detail := range gerr.Details {
			fields, ok := detail.(map[string]interface{})
			if !ok || fields["@type"] != retryInfoType {
				continue
			}
			if delay, ok := fields["retryDelay"].(string); ok {
				if d, ok := parseSeconds(retryDelaySeconds.FindStringSubmatch(delay)); ok {
					return d, true
				}
			}
		}
	}

	return parseSeconds(retryDelayInText.FindStringSubmatch(err.Error()))
}

func parseSeconds(match []string) (time.Duration, bool) {
	if len(match) < 2 {
		return 0, false
	}
	seconds, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// IsRateLimited reports whether err is a provider quota or rate-limit rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}
