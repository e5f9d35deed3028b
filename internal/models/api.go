package models

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type GenerationProgress struct {
	Topic        string       `json:"topic"`
	State        SessionState `json:"state"`
	Current      int          `json:"current"`
	Total        int          `json:"total"`
	Personalized bool         `json:"personalized"`
	StepName     string       `json:"step_name"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
