package shared

// GenerateBody is the inbound body of POST /generate
type GenerateBody struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	CallbackURL string `json:"callback_url"`
}

// GeneratePayload is what gets forwarded upstream
type GeneratePayload struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type InfoResponse struct {
	Message  string `json:"message"`
	Upstream string `json:"upstream"`
}

type CallbackAck struct {
	Received bool   `json:"received"`
	ID       string `json:"id"`
}

type CallbackNotFound struct {
	Error string `json:"error"`
}

type CallbackIndex struct {
	Count int      `json:"count"`
	Items []string `json:"items"`
}
