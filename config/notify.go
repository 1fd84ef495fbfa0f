package config

import "fmt"

// NotifyConfig controls run-summary publishing over MQTT.
type NotifyConfig struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
	QoS      byte   `json:"qos"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetDefaults applies sane defaults.
func (c *NotifyConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "dispatch/runs"
	}
	if c.ClientID == "" {
		c.ClientID = "dispatchd"
	}
}

// Validate checks mandatory fields.
func (c NotifyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required when notify is enabled")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	return nil
}
