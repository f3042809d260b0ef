package broker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tparsec/canlight/config"
)

func TestAvailabilityTopic(t *testing.T) {
	c := &Client{cfg: config.BrokerConfig{NodeID: "canlight"}}
	require.Equal(t, "canlight/availability", c.AvailabilityTopic())
}

func TestCommandTopic(t *testing.T) {
	c := &Client{cfg: config.BrokerConfig{NodeID: "canlight"}}
	dev := config.DeviceConfig{Unique: "living_room"}
	require.Equal(t, "canlight/light/living_room/set", c.CommandTopic(dev))
}
