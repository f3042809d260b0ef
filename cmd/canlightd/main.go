// Command canlightd bridges a CAN-bus lighting fieldbus to an MQTT broker.
// It loads configuration, enumerates the bus once at start-up, publishes
// the node-wide availability as online, and then relays MQTT commands to
// dimmer proxies. Per-device availability transitions are logged; they are
// not published to MQTT.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/tparsec/canlight"
	"github.com/tparsec/canlight/broker"
	"github.com/tparsec/canlight/color"
	"github.com/tparsec/canlight/config"
)

func main() {
	var (
		configPath = flag.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
		device     = flag.StringP("device", "d", "", "CAN device name, overrides can.dev in the config file")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	lg := logrus.New()
	if *verbose {
		lg.SetLevel(logrus.DebugLevel)
	}
	canlight.SetLogger(lg)

	if err := run(*configPath, *device, lg); err != nil {
		lg.Fatal(err)
	}
}

func run(configPath, deviceOverride string, lg *logrus.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	device := cfg.CAN.Device
	if deviceOverride != "" {
		device = deviceOverride
	}

	bus, err := canlight.New(device)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	lg.Infof("enumerating fieldbus %s", device)
	if err := bus.Enumerate(context.Background()); err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}

	brk := broker.New(cfg.MQTT, lg)
	if err := brk.Connect(); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer brk.Close()

	if err := brk.PublishAvailability(true); err != nil {
		lg.Errorf("publish availability: %v", err)
	}

	for _, dev := range cfg.Devices {
		if err := wireDevice(bus, brk, dev, lg); err != nil {
			lg.Errorf("wire device %s: %v", dev.Unique, err)
		}
	}

	select {}
}

// commandMessage is the JSON body of an MQTT light "set" command, shaped
// to match Home Assistant's JSON light schema.
type commandMessage struct {
	State      string  `json:"state"`
	Brightness float64 `json:"brightness"`
	ColorTemp  float64 `json:"color_temp"`
	White      float64 `json:"white_value"`
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
}

func wireDevice(bus *canlight.Bus, brk *broker.Client, dev config.DeviceConfig, lg *logrus.Logger) error {
	proxy, err := bus.GetProxy(dev.BusID, canlight.CapabilityDimmer)
	if err != nil {
		return err
	}
	dimmer, ok := proxy.(*canlight.DimmerProxy)
	if !ok {
		return fmt.Errorf("proxy for %s is not a dimmer", dev.BusID)
	}

	proxy.OnAvailability(func(avail bool) {
		lg.Infof("device %s availability -> %v", dev.Unique, avail)
	})

	if err := brk.PublishDiscovery(dev); err != nil {
		return fmt.Errorf("publish discovery: %w", err)
	}

	curve := color.DefaultCurve
	topic := brk.CommandTopic(dev)
	return brk.Subscribe(topic, func(payload []byte) {
		var cmd commandMessage
		if err := json.Unmarshal(payload, &cmd); err != nil {
			lg.Errorf("device %s: bad command payload: %v", dev.Unique, err)
			return
		}
		state := color.State{
			On:          cmd.State == "ON",
			Brightness:  cmd.Brightness / 255.0,
			Temperature: cmd.ColorTemp,
			White:       cmd.White / 255.0,
			Hue:         cmd.Hue,
			Saturation:  cmd.Saturation / 100.0,
		}
		r, g, b, cw, ww := curve.ToChannels(state)
		dimmer.Set(r, g, b, cw, ww)
	})
}
