// Package config loads cache settings from YAML and builds stores from them.
//
// Precedence is defaults, then the YAML file, then environment overrides.
// ${VAR} references in the file are expanded strictly before decoding, so
// a missing variable is a load error rather than an empty string.
//
//	store:
//	  kind: file
//	  backend: sliding
//	  path: ${HOME}/.cache/tools.json
//	  size: 500
//	  ttl: 10m
//	log:
//	  level: debug
package config
