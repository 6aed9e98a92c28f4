// Package config defines the redikv-server configuration structure.
//
// Values load with the priority env > file > default through
// internal/infra/confloader.
package config
