package internal

import (
	"fmt"
	"time"
)

type Config struct {
	WebsocketURL     string        `env:"WEBSOCKET_URL,required=true"`
	LogLevel         string        `env:"LOG_LEVEL,required=true"`
	BufferSize       int           `env:"BUFFER_SIZE,required=true"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,required=true"`
	ReconnectDelay   time.Duration `env:"RECONNECT_DELAY,required=true"`
	WriteTimeout     time.Duration `env:"WRITE_TIMEOUT,required=true"`
	PingInterval     time.Duration `env:"PING_INTERVAL,required=true"`

	UserID   string `env:"USER_ID,required=true"`
	UserName string `env:"USER_NAME,required=true"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,required=true"`

	MaxActivityItems int           `env:"MAX_ACTIVITY_ITEMS"`
	MaxNotifications int           `env:"MAX_NOTIFICATIONS"`
	AutoHideDuration time.Duration `env:"AUTO_HIDE_DURATION"`
	MaxVisibleUsers  int           `env:"MAX_VISIBLE_USERS"`

	BlockedWords  *string `env:"BLOCKED_WORDS"`
	MaskCharacter string  `env:"MASK_CHARACTER"`
}

// MaskRune parses the configured mask character, defaulting to '*'.
func MaskRune(str string) (rune, error) {
	if str == "" {
		return '*', nil
	}
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MASK_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
