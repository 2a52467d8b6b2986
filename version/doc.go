// Package version reports the build version of the pvpauth binary. The
// service config falls back to it when no version is configured.
package version
