// n2kdevice joins a NMEA2000 bus as an active node: it claims a source address
// with the NAME from its configuration file and transmits a set of sample
// messages.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/skrewby/nmea"
	"github.com/skrewby/nmea/internal/logging"
	"github.com/skrewby/nmea/serialcan"
	"github.com/skrewby/nmea/socketcan"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:          "n2kdevice",
		Short:        "Claim an address on a NMEA2000 bus and send sample messages.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			log, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			return run(cfg, log)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "n2kdevice.yaml", "path to device configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")
	return cmd
}

func connect(cfg Config) (nmea.FrameReadWriter, error) {
	if cfg.Interface != "" {
		return socketcan.Connect(cfg.Interface)
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Serial.Device, Baud: cfg.Serial.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device: %w", err)
	}
	return serialcan.NewConnection(port), nil
}

func run(cfg Config, log zerolog.Logger) error {
	conn, err := connect(cfg)
	if err != nil {
		return err
	}

	device := nmea.NewDevice(conn, nmea.DeviceConfig{Logger: &log})
	defer device.Close()

	name := cfg.Name.DeviceName()
	log.Info().
		Uint32("unique_number", name.UniqueNumber).
		Bool("arbitrary_address_capable", name.ArbitraryAddressCapable).
		Msg("claiming address")
	if err := <-device.Claim(name); err != nil {
		return fmt.Errorf("failed to claim address: %w", err)
	}
	address, _ := device.Address()
	log.Info().Uint8("address", address).Msg("address claimed")

	messages := []nmea.Message{
		nmea.CogSog{SID: 1, COGReference: 0, COG: 0.4660, SOG: 2.21},
		nmea.Temperature{SID: 2, Instance: 1, Source: 3, ActualTemperature: 285.15, SetTemperature: 288.15},
		nmea.VesselSpeedComponents{
			Longitudinal: nmea.SpeedComponent{Water: 2.105, Ground: 2.312},
			Transverse:   nmea.SpeedComponent{Water: 0.041, Ground: 0.052},
		},
	}
	for _, msg := range messages {
		if err := device.Send(msg); err != nil {
			return fmt.Errorf("failed to send PGN %d: %w", msg.PGN(), err)
		}
		log.Info().Uint32("pgn", uint32(msg.PGN())).Msgf("sent %v", msg)
	}
	return nil
}
