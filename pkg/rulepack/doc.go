// Package rulepack turns YAML rule packs into custom analyzers.
//
// A pack names a set of weighted regular expressions and the score
// thresholds for the phishing and spam decisions:
//
//	name: invoice_fraud
//	description: Fake invoices and payment redirection
//	source: custom
//	thresholds:
//	  phishing: 70
//	  spam: 40
//	rules:
//	  - id: wire_change
//	    pattern: 'update(d)? (our|the) (bank|wire) details'
//	    weight: 60
//	    factor: Payment redirection
//	  - id: overdue
//	    pattern: 'overdue invoice'
//	    weight: 20
//
// Patterns are matched case-insensitively. Each matching rule adds its
// weight once. A text that matches nothing yields no result, so a pack
// only speaks up about what it recognizes.
//
// The Manager keeps the orchestrator in sync with the packs on disk. A
// Watcher (fsnotify) or a GitSource (go-git) triggers Manager.Reload when
// the pack files change.
package rulepack
