package reminder

import "net/http"

type Status string

const (
	StatusSuccess             Status = "Success"
	StatusNoEventsFound       Status = "NoEventsFound"
	StatusDeliveryFailed      Status = "DeliveryFailed"
	StatusAuthRequired        Status = "AuthRequired"
	StatusProviderUnavailable Status = "ProviderUnavailable"
)

// Outcome is the result of one pipeline run. Detail and StatusCode are only
// set for StatusDeliveryFailed.
type Outcome struct {
	Status     Status
	Detail     string
	StatusCode int
	// Err is the underlying failure, kept for logs.
	Err error
}

func (o Outcome) Message() string {
	switch o.Status {
	case StatusSuccess:
		return "Success"
	case StatusNoEventsFound:
		return "No events found"
	case StatusDeliveryFailed:
		return o.Detail
	case StatusAuthRequired:
		return "Calendar authorization required, visit /auth"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

// HTTPStatus maps the outcome to the status answered by the trigger endpoints.
func (o Outcome) HTTPStatus() int {
	switch o.Status {
	case StatusSuccess, StatusNoEventsFound:
		return http.StatusOK
	case StatusDeliveryFailed:
		if o.StatusCode != 0 {
			return o.StatusCode
		}
		return http.StatusInternalServerError
	case StatusAuthRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Failed reports whether the run should count as a failure for the trigger.
func (o Outcome) Failed() bool {
	return o.Status != StatusSuccess && o.Status != StatusNoEventsFound
}
