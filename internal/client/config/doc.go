// Package config loads runtime configuration for the farmadvisor client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml/.yml are YAML, everything else is JSON.
//  3. Environment variables prefixed FARM_ (a .env file in the working
//     directory is loaded first via godotenv).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the backend
//	-i int      online status check interval (seconds)
//	-l string   local proxy listen address
//	-d string   database file path
//	-t string   sync transport (http|grpc)
//
// # File schema
//
// Durations use timex.Duration, so values are strings like "30m" or integer
// nanoseconds:
//
//	backend_url: http://127.0.0.1:8080
//	sync_transport: grpc
//	online_check_interval: 5s
//	cache_ttl:
//	  weather: 30m
//	sync:
//	  max_attempts: 8
//	backup:
//	  bucket: farm-backups
package config
