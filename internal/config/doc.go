// Package config loads the configuration files a scope harness works with:
// scope .ini files, the runtime .ini file, .ini templates rendered from the
// environment, and the harness's own settings.
package config
