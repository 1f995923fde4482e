package ws

import (
	"time"

	"github.com/dmitrymomot/pushkit/pkg/config"
)

// Config controls gateway timeouts, buffer sizes and handshake limits.
type Config struct {
	ReadBufferSize  int           `env:"PUSHKIT_WS_READ_BUFFER" envDefault:"1024"`
	WriteBufferSize int           `env:"PUSHKIT_WS_WRITE_BUFFER" envDefault:"1024"`
	WriteTimeout    time.Duration `env:"PUSHKIT_WS_WRITE_TIMEOUT" envDefault:"10s"`
	PongTimeout     time.Duration `env:"PUSHKIT_WS_PONG_TIMEOUT" envDefault:"60s"`
	PingInterval    time.Duration `env:"PUSHKIT_WS_PING_INTERVAL" envDefault:"54s"`
	MaxMessageSize  int64         `env:"PUSHKIT_WS_MAX_MESSAGE_SIZE" envDefault:"65536"`
	SendBuffer      int           `env:"PUSHKIT_WS_SEND_BUFFER" envDefault:"64"`

	// HandshakeRate and HandshakeBurst bound new connections per second
	// across the gateway. A zero rate disables limiting.
	HandshakeRate  float64 `env:"PUSHKIT_WS_HANDSHAKE_RATE" envDefault:"50"`
	HandshakeBurst int     `env:"PUSHKIT_WS_HANDSHAKE_BURST" envDefault:"100"`
}

// LoadConfig reads the gateway configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    54 * time.Second,
		MaxMessageSize:  65536,
		SendBuffer:      64,
		HandshakeRate:   50,
		HandshakeBurst:  100,
	}
}
