// Package mqttclient wires github.com/soypat/natiu-mqtt to the
// Command/CurrentPos signals, implementing the MQTT v5 contract from
// section 6: will message, keepalive, session expiry, QoS and retain
// settings on both the command subscription and the position publish.
package mqttclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"crabroll/config"
	"crabroll/internal/input"
	"crabroll/internal/motorctl"
)

const (
	keepalive       = 60 * time.Second
	sessionExpiry   = 120 * time.Second
	willDelay       = 10 * time.Second
	willExpiry      = 20 * time.Second
	willPayload     = "crabroll died :("
	willTopic       = "crabroll-dead"
	reconnectWait   = 5 * time.Second
	socketReadTimeo = 10 * time.Second
)

// Client wraps a natiu-mqtt Client bound to one TCP transport,
// forwarding command-topic publishes to commands and publishing the
// position percentages handed to PublishPosition.
type Client struct {
	mc       *mqtt.Client
	cfg      config.Config
	commands *motorctl.Signal[motorctl.Command]
	log      *slog.Logger
}

// New constructs a Client without a transport; Connect takes the
// already-established TCP connection to the broker (see
// netdev/tcpip), and the caller owns reconnecting it on failure.
func New(cfg config.Config, commands *motorctl.Signal[motorctl.Command], log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{cfg: cfg, commands: commands, log: log}
	c.mc = mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 4096)},
		OnPub:   c.onPublish,
	})
	return c
}

// Connect performs the MQTT CONNECT handshake over conn with the will
// message, keepalive, and session-expiry settings from section 6, then
// subscribes to the command topic.
func (c *Client) Connect(ctx context.Context, conn io.ReadWriteCloser) error {
	varConn := mqtt.VariablesConnect{
		ClientID:         []byte(c.cfg.HostID),
		Username:         []byte(c.cfg.MQTTUsername),
		Password:         []byte(c.cfg.MQTTPassword),
		CleanStart:       false,
		KeepAlive:        uint16(keepalive.Seconds()),
		WillTopic:        []byte(willTopic),
		WillPayload:      []byte(willPayload),
		WillQoS:          mqtt.QoS2,
		WillRetain:       true,
		WillDelayInterval: uint32(willDelay.Seconds()),
	}
	varConn.SessionExpiryInterval = uint32(sessionExpiry.Seconds())
	varConn.WillProperties.MessageExpiryInterval = uint32(willExpiry.Seconds())
	varConn.WillProperties.ContentType = []byte("txt")

	if err := c.mc.Connect(ctx, conn, &varConn); err != nil {
		return fmt.Errorf("mqttclient: connect: %w", err)
	}

	sub := mqtt.VariablesSubscribe{
		Subscriptions: []mqtt.SubscribeRequest{{
			TopicFilter:       []byte(c.cfg.CommandTopic),
			QoS:               mqtt.QoS2,
			RetainHandling:    1, // send retained messages only if not already subscribed
			RetainAsPublished: true,
		}},
	}
	if err := c.mc.Subscribe(ctx, sub); err != nil {
		return fmt.Errorf("mqttclient: subscribe: %w", err)
	}
	return nil
}

// Run pumps incoming packets until ctx is cancelled or a transient I/O
// error occurs. Per the error taxonomy, the caller treats any returned
// error as cause to abort the session and reconnect after reconnectWait.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.mc.HandleNext(ctx); err != nil {
			return fmt.Errorf("mqttclient: session aborted: %w", err)
		}
	}
}

// PublishPosition publishes pct (0..100) as decimal ASCII to the
// position topic at QoS 0, retained.
func (c *Client) PublishPosition(ctx context.Context, pct uint8) error {
	payload := fmt.Appendf(nil, "%d", pct)
	varPub := mqtt.VariablesPublish{
		TopicName: []byte(c.cfg.PosTopic),
		Retain:    true,
	}
	header := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err := c.mc.PublishPayload(header, varPub, payload); err != nil {
		return fmt.Errorf("mqttclient: publish position: %w", err)
	}
	return nil
}

func (c *Client) onPublish(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
	if string(varPub.TopicName) != c.cfg.CommandTopic {
		return nil
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	cmd, err := input.ParseMoveCommand(payload)
	if err != nil {
		c.log.Warn("rejecting malformed command payload", slog.String("error", err.Error()))
		return err // aborts the session per the error taxonomy
	}
	c.commands.Send(cmd)
	return nil
}

// ReconnectWait and SocketReadTimeout expose the two MQTT-related
// timeouts from the concurrency model to the outer reconnect loop.
func ReconnectWait() time.Duration    { return reconnectWait }
func SocketReadTimeout() time.Duration { return socketReadTimeo }
