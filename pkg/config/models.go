package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Relay     RelayConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Address         string
	AllowedOrigins  []string              `mapstructure:"allowedOrigins"`
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
	Auth            AuthConfig
}

type AuthConfig struct {
	// JWTSecret enables the auth middleware when non-empty. The default is
	// empty: every handshake is accepted.
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int `mapstructure:"maxPerIP"` // 0 = unlimited
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	SendBuffer  int           `mapstructure:"sendBuffer"`
}

type RelayConfig struct {
	// ForwardUnknown relays frames with an unrecognized type discriminator:
	// to the named target session when the frame carries one, to everyone
	// otherwise. Off, such frames are dropped.
	ForwardUnknown bool `mapstructure:"forwardUnknown"`
}

type MetricsConfig struct {
	Address string // prometheus listen address; empty disables the endpoint
}
