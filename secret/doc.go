// Package secret resolves secret references in configuration values.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider)
//   - Resolving secret references, optionally cached (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:vault:kv/data/openai#api_key
//   - Inline use:  Bearer secretref:vault:kv/data/openai#api_key
//   - Environment: secretref:env:OPENAI_API_KEY (see EnvProvider)
package secret
