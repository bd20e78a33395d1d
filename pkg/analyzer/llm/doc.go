// Package llm implements an analyzer that asks a large language model for a
// verdict.
//
// The model is prompted to answer with a single JSON object:
//
//	{"decision": "phishing", "confidence": 0.93, "reason": "credential harvesting link"}
//
// The first JSON object in the reply is parsed. Common synonyms such as
// "legitimate" or "ham" are normalized onto the shared decision set and the
// confidence is clamped to [0, 1]. A reply without a usable object is an
// error, which the orchestrator contains.
//
// Two clients are provided: AnthropicClient (Messages API) and OpenAIClient
// (Chat Completions API, including compatible gateways via BaseURL).
package llm
