// Package config provides loading and environment overlay for synthlog
// configuration: store layout, server listener and storage, logging and page
// size limits.
//
// Example:
//
//	cfg, err := config.Load("/etc/synthlog.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
