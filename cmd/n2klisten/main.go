// n2klisten is a passive NMEA2000 bus listener: it decodes every message it
// can reassemble and keeps a map of the nodes it observes claiming addresses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/skrewby/nmea"
	"github.com/skrewby/nmea/busmap"
	"github.com/skrewby/nmea/internal/logging"
	"github.com/skrewby/nmea/serialcan"
	"github.com/skrewby/nmea/socketcan"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tarm/serial"
)

type options struct {
	ifName       string
	serialDevice string
	baudRate     int
	logPath      string
	verbose      bool
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.ifName, "interface", "i", "", "SocketCAN interface name, for example can0")
	flags.StringVar(&opts.serialDevice, "serial", "", "path to an SLCAN serial gateway, for example /dev/ttyUSB0")
	flags.IntVar(&opts.baudRate, "baud", 115200, "serial device baud rate")
	flags.StringVar(&opts.logPath, "log-file", "", "log to this file instead of stdout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "set debug logging level")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "n2klisten",
		Short:        "Listen to a NMEA2000 bus and print decoded messages.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ifName == "" && opts.serialDevice == "" {
				return errors.New("either --interface or --serial is required")
			}
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			log, err := logging.New(logging.Config{
				Path:   opts.logPath,
				Level:  level,
				Format: "console",
			})
			if err != nil {
				return err
			}
			return run(opts, log)
		},
	}
	addFlags(cmd.Flags(), opts)
	return cmd
}

func connect(opts *options) (nmea.FrameReader, error) {
	if opts.ifName != "" {
		return socketcan.Connect(opts.ifName)
	}
	port, err := serial.OpenPort(&serial.Config{Name: opts.serialDevice, Baud: opts.baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device: %w", err)
	}
	return serialcan.NewConnection(port), nil
}

func run(opts *options, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := connect(opts)
	if err != nil {
		return err
	}

	nodes := busmap.New(busmap.Config{})
	listener := nmea.NewListener(conn, nmea.ListenerConfig{
		Logger: &log,
		FrameObserver: func(frame nmea.RawFrame) {
			if nodes.Observe(frame) {
				node, ok := nodes.NodeBySource(frame.Header.Source)
				if ok {
					log.Info().
						Uint8("source", node.Source).
						Uint32("unique_number", node.Name.UniqueNumber).
						Uint16("manufacturer", node.Name.ManufacturerCode).
						Msg("node claimed address")
				}
			}
		},
	})

	// reads block on the socket, closing the connection unblocks them on shutdown
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	log.Info().Msg("listening")
	for {
		msg, err := listener.Read()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return nil
			}
			var decodeErr *nmea.UnsupportedPGNError
			if errors.As(err, &decodeErr) {
				log.Debug().Uint32("pgn", decodeErr.PGN).Msg("skipping unsupported PGN")
				continue
			}
			if isRecoverable(err) {
				log.Warn().Err(err).Msg("failed to decode message")
				continue
			}
			return err
		}
		log.Info().Uint32("pgn", uint32(msg.PGN())).Msgf("%v", msg)
	}
}

// isRecoverable reports whether the read loop should keep going after the error.
func isRecoverable(err error) bool {
	var shortErr *nmea.ShortPayloadError
	var unexpectedErr *nmea.UnexpectedDataPacketError
	var orderErr *nmea.OutOfOrderError
	return errors.As(err, &shortErr) ||
		errors.As(err, &unexpectedErr) ||
		errors.As(err, &orderErr) ||
		errors.Is(err, nmea.ErrReadTimeout) ||
		errors.Is(err, nmea.ErrIncompleteFrame)
}
