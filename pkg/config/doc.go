// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each package that needs configuration declares its own Config struct
// with `env` tags, and the caller passes the parsed value in explicitly at
// construction time; nothing in this module reads ambient process state
// after startup.
package config
