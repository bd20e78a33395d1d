// Package model implements analyzers backed by statistical text classifiers
// served over HTTP.
//
// A classifier returns one score per native label, either as raw logits or as
// probabilities. The analyzer converts logits with a softmax, picks the most
// probable label (the earliest label wins an exact tie) and maps it onto the
// shared decision set through a LabelSet.
//
// The inference server contract is:
//
//	POST {base}/predict   {"text": "..."}  ->  {"logits": [...]} or {"probabilities": [...]}
//	GET  {base}/health                      ->  any 2xx
//
// New performs the health handshake, so an analyzer that was constructed
// successfully had a reachable backend at startup.
package model
