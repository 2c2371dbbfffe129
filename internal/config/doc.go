// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for helia.
//
// Configuration lives in ~/.helia/config.toml (override the directory with
// HELIA_HOME). Missing values fall back to built-in defaults, a .env file in
// the working directory is loaded into the environment, and HELIA_*
// variables override the file.
//
// # Configuration Precedence
//
//   - Environment variables (HELIA_*), including values from .env
//   - ~/.helia/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.BaseURL)
//
// There is no package-level config instance; the loaded *Config is passed
// to the components that need it.
package config
