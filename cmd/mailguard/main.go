// Mailguard classifies email text as safe, spam or phishing.
//
// It runs every registered analyzer (a rule-based scorer, statistical model
// servers, a URL reputation service, a language model and YAML rule packs)
// over the text and reports each verdict side by side.
//
// Usage:
//
//	# Start the HTTP API
//	mailguard run --config /etc/mailguard/config.yaml
//
//	# Scan a message from stdin with the builtin rules only
//	mailguard scan --rules-only < message.txt
//
//	# List the analyzers the configuration registers
//	mailguard models
//
//	# Show a user's recent scans
//	mailguard history --user alice --limit 5
//
//	# Check rule packs before deploying them
//	mailguard rules validate ./rules
package main

import "os"

func main() {
	os.Exit(Execute())
}
