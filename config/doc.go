// Package config loads process configuration with Viper.
//
// Values come from an optional config.yml, an optional .env file (loaded
// with godotenv) and the process environment, in increasing precedence.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("pvpauth", &cfg, config.WithEnvFile(".env"))
package config
