// Package config loads env-tagged configuration structs with
// github.com/caarlos0/env. Each package owns its Config type; the binary
// loads them with Load and passes the values down explicitly.
package config
