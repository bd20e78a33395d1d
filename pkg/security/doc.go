// Package security groups the access-control pieces of mailguard.
//
// Subpackage auth validates API keys presented on the /v1 routes and maps
// each key to the user that owns its scan history.
package security
