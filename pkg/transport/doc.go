// Package transport is the HTTP client shared by analyzers that call remote
// backends such as inference servers and URL reputation services.
//
// A Client adds connection pooling, bearer authentication, exponential
// backoff on transient failures and consecutive-failure health tracking on
// top of net/http. Failures are reported as typed errors:
//
//   - *AuthError for 401 and 403 responses (not retried)
//   - *RateLimitError for 429 responses (not retried)
//   - *StatusError for other non-2xx responses (5xx is retried)
//   - *TimeoutError when the context expires
//   - *ParseError when a JSON response cannot be decoded
//
// Example:
//
//	c := transport.New(transport.Config{
//		Name:       "distilbert",
//		BaseURL:    "http://127.0.0.1:9000",
//		Timeout:    10 * time.Second,
//		MaxRetries: 2,
//	})
//	defer c.Close()
//
//	var out predictResponse
//	err := c.DoJSON(ctx, http.MethodPost, "/predict", predictRequest{Text: text}, &out)
package transport
