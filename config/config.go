// Package config holds the build-time configuration this firmware
// needs: Wi-Fi credentials, the MQTT broker and topic layout, and the
// device's own identity. These are Go's analogue of the original
// firmware's compile-time env vars: package-level string vars set via
// `-ldflags "-X crabroll/config.SSID=..."` at build time rather than
// read from a filesystem the device doesn't have.
package config

var (
	SSID     string
	Password string
	Hostname string

	MQTTBrokerIP  string // IPv4 literal, e.g. "192.168.1.10"
	MQTTUsername  string
	MQTTPassword  string
	HostID        string
	TopicPrefix   string
)

// Config is the parsed, validated view of the build-time vars above,
// constructed once at startup.
type Config struct {
	SSID     string
	Password string
	Hostname string

	MQTTBrokerIP string
	MQTTUsername string
	MQTTPassword string
	HostID       string

	CommandTopic string
	PosTopic     string
}

// Load validates the package-level build vars and derives the two MQTT
// topics from TopicPrefix. It returns an error (a Configuration error
// in the taxonomy) rather than panicking, since the caller blinks the
// error LED for missing configuration instead of crashing.
func Load() (Config, error) {
	c := Config{
		SSID:         SSID,
		Password:     Password,
		Hostname:     Hostname,
		MQTTBrokerIP: MQTTBrokerIP,
		MQTTUsername: MQTTUsername,
		MQTTPassword: MQTTPassword,
		HostID:       HostID,
		CommandTopic: TopicPrefix + "command",
		PosTopic:     TopicPrefix + "pos",
	}
	if c.SSID == "" {
		return Config{}, errMissing("SSID")
	}
	if c.MQTTBrokerIP == "" {
		return Config{}, errMissing("MQTT_BROKER_IP")
	}
	if c.HostID == "" {
		return Config{}, errMissing("HOST_ID")
	}
	return c, nil
}

type missingConfigError string

func (e missingConfigError) Error() string { return "config: missing required build-time value " + string(e) }

func errMissing(name string) error { return missingConfigError(name) }
