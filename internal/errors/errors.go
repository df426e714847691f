package errors

// ErrorResponse represents a standardized error response. UpstreamStatus is
// set when an external collaborator (the moderation service) caused the
// failure, carrying its status code through to the caller.
type ErrorResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}
