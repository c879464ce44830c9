package httpapi

// startRequest is the POST /start body
type startRequest struct {
	URL     string `json:"url"`
	Doctor  string `json:"doctor"`
	Patient string `json:"patient"`
	// Key overrides the session key; defaults to the url
	Key string `json:"key,omitempty"`
}

// startResponse is the POST /start success body
type startResponse struct {
	Message  string `json:"message"`
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	WorkDir  string `json:"workDir"`
	URL      string `json:"url"`
}

// stopRequest is the POST /stop body
type stopRequest struct {
	Key string `json:"key"`
	// CallID is the external call-record identifier used for persistence
	// and notification; defaults to the key
	CallID string `json:"callId,omitempty"`
}

// stopResponse acknowledges that processing continues asynchronously
type stopResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

// errorResponse is the error body for all endpoints
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
