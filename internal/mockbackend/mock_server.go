// Package mockbackend provides an httptest server that imitates the remote
// backends mailguard analyzers talk to: inference servers, URL reputation
// services and LLM provider APIs.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock HTTP server keyed by request path.
type MockServer struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]MockResponse
	requests  []Request
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

// Request is a recorded incoming request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewMockServer creates and starts a mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{responses: make(map[string][]MockResponse)}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets the response for path, replacing any queued responses.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = []MockResponse{response}
}

// QueueResponses sets a sequence of responses for path. Each request consumes
// one; the last one repeats.
func (ms *MockServer) QueueResponses(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = append([]MockResponse(nil), responses...)
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the recorded requests.
func (ms *MockServer) Requests() []Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]Request(nil), ms.requests...)
}

// LastRequest returns the most recent request, or the zero Request.
func (ms *MockServer) LastRequest() Request {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return Request{}
	}
	return ms.requests[len(ms.requests)-1]
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	queue, ok := ms.responses[r.URL.Path]
	var response MockResponse
	if ok && len(queue) > 0 {
		response = queue[0]
		if len(queue) > 1 {
			ms.responses[r.URL.Path] = queue[1:]
		}
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}

	switch v := response.Body.(type) {
	case nil:
		w.WriteHeader(response.StatusCode)
	case string:
		w.WriteHeader(response.StatusCode)
		_, _ = w.Write([]byte(v))
	case []byte:
		w.WriteHeader(response.StatusCode)
		_, _ = w.Write(v)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(response.StatusCode)
		_ = json.NewEncoder(w).Encode(v)
	}
}

// MockLogits creates an inference-server response carrying raw logits.
func MockLogits(logits ...float64) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: map[string]any{"logits": logits}}
}

// MockProbabilities creates an inference-server response carrying
// probabilities.
func MockProbabilities(probs ...float64) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: map[string]any{"probabilities": probs}}
}

// MockURLPrediction creates a URL reputation response.
func MockURLPrediction(code int) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: map[string]any{"prediction": code}}
}

// MockHealthy creates a 200 health response.
func MockHealthy() MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: map[string]any{"status": "ok"}}
}

// MockOpenAIResponse creates a mock OpenAI chat completion response.
func MockOpenAIResponse(content, model string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: map[string]any{
			"id":      "chatcmpl-123",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		},
	}
}

// MockAnthropicResponse creates a mock Anthropic messages response.
func MockAnthropicResponse(content, model string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: map[string]any{
			"id":            "msg_123",
			"type":          "message",
			"role":          "assistant",
			"content":       []map[string]any{{"type": "text", "text": content}},
			"model":         model,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		},
	}
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// MockSlow wraps response with a delay to simulate a hung backend.
func MockSlow(response MockResponse, delay time.Duration) MockResponse {
	response.Delay = delay
	return response
}
