package domain

// Generation is the outcome of one orchestrated exchange
type Generation struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	ModelCalls int      `json:"model_calls"`
}

// QueryRequest is a user question, optionally continuing a session
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResult is the answer returned to the caller
type QueryResult struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id"`
}
