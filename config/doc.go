/*
Package config is a prioritized configuration registry, derived from the
viper/hugorm design.

Each source takes precedence over the one below it:

	overrides (Set)
	flags (BindPFlag, only when given on the command line)
	environment (BindEnv, AutomaticEnv)
	config files (yaml, json with // comments, toml)
	defaults (SetDefault)

Keys are hierarchical, "store.path" is the key "path" in the map "store".
Unmarshal decodes the merged configuration into a struct with mapstructure.
*/
package config
