// Package config loads and validates Rentwise Core configuration.
//
// Configuration comes from a YAML file, with secrets overridable through
// RENTWISE_* environment variables. A .env file in the working directory is
// loaded into the environment by the binary before Load runs.
//
// The JWT secret signs every access and refresh token, so Validate refuses
// to start with a missing or short secret.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
