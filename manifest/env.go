package manifest

import "github.com/xyproto/env/v2"

// Environment variables that override climb.toml.
const (
	EnvDB          = "CLIMB_DB"
	EnvCacheDriver = "CLIMB_CACHE_DRIVER"
	EnvVerbosity   = "CLIMB_VERBOSITY"
	EnvPort        = "CLIMB_PORT"
	EnvGRPCPort    = "CLIMB_GRPC_PORT"
)

// ApplyEnv overrides manifest fields from the environment.
func (m *Manifest) ApplyEnv() {
	m.Cache.Path = env.Str(EnvDB, m.Cache.Path)
	m.Cache.Driver = env.Str(EnvCacheDriver, m.Cache.Driver)
	m.Log.Verbosity = env.Int(EnvVerbosity, m.Log.Verbosity)
	m.Server.Port = env.Int(EnvPort, m.Server.Port)
	m.Server.GRPCPort = env.Int(EnvGRPCPort, m.Server.GRPCPort)
}
