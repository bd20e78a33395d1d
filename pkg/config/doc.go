// Package config provides configuration management for mailguard.
//
// Configuration is read from a YAML file, decoded on top of the defaults,
// overridden from the environment and validated before use.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("mailguard.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("mailguard.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention MAILGUARD_SECTION_FIELD:
//
//   - MAILGUARD_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - MAILGUARD_ANALYZERS_LLM_API_KEY overrides analyzers.llm.api_key
//   - MAILGUARD_HISTORY_BACKEND overrides history.backend
//   - MAILGUARD_MODELS_<NAME>_BASE_URL overrides the model named NAME
//
// Credential fields in the file may also reference the environment with
// ${VAR} syntax.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// The command layer initializes a process-wide configuration:
//
//	if err := config.Initialize("mailguard.yaml"); err != nil {
//		log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Library packages receive the sections they need as arguments instead.
package config
