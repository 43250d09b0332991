package networktables

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Protocol constants.
const (
	DefaultPort = 5810

	// Subprotocol is the preferred NT4 websocket subprotocol.
	Subprotocol = "v4.1.networktables.first.wpi.edu"
	// LegacySubprotocol is the NT 4.0 subprotocol.
	LegacySubprotocol = "networktables.first.wpi.edu"
)

// Config holds NT4 client configuration.
type Config struct {
	// Server is a host or host:port. When empty, Team selects the
	// roboRIO address.
	Server string
	Team   int
	Port   int

	// ClientName identifies this client to the server.
	ClientName string

	// Reconnect behaviour
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	MaxAttempts          int // 0 retries forever

	// QueueSize bounds outgoing messages while the socket is busy.
	QueueSize int

	// TimeSyncInterval is how often the clock offset is refreshed.
	TimeSyncInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns client defaults with a unique client name.
func DefaultConfig() Config {
	return Config{
		Port:                 DefaultPort,
		ClientName:           "frcvision-" + uuid.NewString()[:8],
		ReconnectInterval:    500 * time.Millisecond,
		MaxReconnectInterval: 5 * time.Second,
		QueueSize:            256,
		TimeSyncInterval:     3 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Server == "" && c.Team <= 0 {
		return errors.New("networktables: server or team number required")
	}
	if c.Team < 0 || c.Team > 25599 {
		return fmt.Errorf("networktables: team %d out of range", c.Team)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("networktables: invalid port %d", c.Port)
	}
	if c.ClientName == "" {
		return errors.New("networktables: client name required")
	}
	if c.MaxAttempts < 0 {
		return errors.New("networktables: max attempts must be >= 0")
	}
	return nil
}

// TeamAddress returns the roboRIO address for a team number, 10.TE.AM.2.
func TeamAddress(team int) string {
	return fmt.Sprintf("10.%d.%d.2", team/100, team%100)
}

// Address returns the host:port to dial.
func (c Config) Address() string {
	host := c.Server
	if host == "" {
		host = TeamAddress(c.Team)
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// URL returns the websocket endpoint.
func (c Config) URL() string {
	name := strings.ReplaceAll(c.ClientName, "/", "_")
	return "ws://" + c.Address() + "/nt/" + name
}
