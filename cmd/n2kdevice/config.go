package main

import (
	"fmt"
	"os"

	"github.com/skrewby/nmea"
	"github.com/skrewby/nmea/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the device tool configuration file.
type Config struct {
	// Interface is a SocketCAN interface name, for example "can0"
	Interface string `yaml:"interface"`
	// Serial configures an SLCAN serial gateway, used when Interface is empty
	Serial SerialConfig   `yaml:"serial"`
	Log    logging.Config `yaml:"log"`
	Name   NameConfig     `yaml:"name"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// NameConfig is the NAME the device claims its address with.
type NameConfig struct {
	UniqueNumber            uint32 `yaml:"unique_number"`
	ManufacturerCode        uint16 `yaml:"manufacturer_code"`
	DeviceInstanceLower     uint8  `yaml:"device_instance_lower"`
	DeviceInstanceUpper     uint8  `yaml:"device_instance_upper"`
	DeviceFunction          uint8  `yaml:"device_function"`
	DeviceClass             uint8  `yaml:"device_class"`
	SystemInstance          uint8  `yaml:"system_instance"`
	IndustryGroup           uint8  `yaml:"industry_group"`
	ArbitraryAddressCapable bool   `yaml:"arbitrary_address_capable"`
}

func (c NameConfig) DeviceName() nmea.DeviceName {
	return nmea.DeviceName{
		UniqueNumber:            c.UniqueNumber,
		ManufacturerCode:        c.ManufacturerCode,
		DeviceInstanceLower:     c.DeviceInstanceLower,
		DeviceInstanceUpper:     c.DeviceInstanceUpper,
		DeviceFunction:          c.DeviceFunction,
		DeviceClass:             c.DeviceClass,
		SystemInstance:          c.SystemInstance,
		IndustryGroup:           c.IndustryGroup,
		ArbitraryAddressCapable: c.ArbitraryAddressCapable,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Serial: SerialConfig{Baud: 115200},
		Log:    logging.Config{Level: "info", Format: "console"},
		Name: NameConfig{
			IndustryGroup:           4, // marine
			ArbitraryAddressCapable: true,
		},
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Interface == "" && cfg.Serial.Device == "" {
		return Config{}, fmt.Errorf("config must set either interface or serial.device")
	}
	return cfg, nil
}
