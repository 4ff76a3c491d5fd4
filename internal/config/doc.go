// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration.
//
// Precedence is ENV (ARTSTOR_*) > YAML file > defaults. The file is decoded
// strictly: unknown keys fail the load. ConfigHolder keeps the live copy and
// reloads it when the file changes.
package config
