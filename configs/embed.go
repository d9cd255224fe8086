// Package configs embeds the configuration template written by
// 'ftsync init'.
//
// The template mirrors the defaults of config.NewConfig plus the example
// Entry type, annotated for editing. Edit project.example.yaml and rebuild.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .ftsync.yaml in the project root.
//
//go:embed project.example.yaml
var ProjectConfigTemplate string
