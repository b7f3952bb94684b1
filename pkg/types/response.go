package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PageEnvelope wraps list responses with paging metadata.
type PageEnvelope struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

type PageMeta struct {
	Page       int    `json:"page,omitempty"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
