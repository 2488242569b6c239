// Sabermon tails the saber's USB console, decodes the framed telemetry
// records and prints them as structured logs. Raw console bytes that are not
// telemetry (boot chatter, runtime panics) pass through untouched.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dikkadev/prettyslog"

	"saber/host/serial"
	"saber/telemetry"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Log at debug level")
)

// States as the firmware numbers them (core.State order).
var stateNames = []string{"OFF", "POWER_ON", "IDLE", "SWING", "HIT", "POWER_OFF", "ERROR"}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(prettyslog.NewPrettyslogHandler("saber",
		prettyslog.WithLevel(level),
	))

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		logger.Error("open failed", "device", *device, "err", err)
		os.Exit(1)
	}
	defer port.Close()
	logger.Info("connected", "device", *device)

	scanner := telemetry.NewScanner(port)
	scanner.OnRaw = func(b []byte) {
		os.Stdout.Write(b)
	}

	for {
		rec, err := scanner.Next()
		if err == io.EOF {
			logger.Info("stream closed")
			return
		}
		if err != nil {
			logger.Error("read failed", "err", err)
			os.Exit(1)
		}
		logRecord(logger, rec)
	}
}

func logRecord(logger *slog.Logger, rec telemetry.Record) {
	switch rec.Type {
	case telemetry.TypeLog:
		logger.Info(strings.TrimRight(string(rec.Payload), "\r\n"))

	case telemetry.TypeState:
		if len(rec.Payload) < 2 {
			logger.Warn("short state record", "len", len(rec.Payload))
			return
		}
		logger.Info("state change",
			"from", stateName(rec.Payload[0]),
			"to", stateName(rec.Payload[1]))

	case telemetry.TypeBattery:
		if len(rec.Payload) < 2 {
			logger.Warn("short battery record", "len", len(rec.Payload))
			return
		}
		logger.Info("battery",
			"percent", rec.Payload[0],
			"external", rec.Payload[1] != 0)

	case telemetry.TypeFault:
		if len(rec.Payload) < 6 {
			logger.Warn("short fault record", "len", len(rec.Payload))
			return
		}
		logger.Warn("fault",
			"code", rec.Payload[0],
			"state", stateName(rec.Payload[1]),
			"value", binary.BigEndian.Uint32(rec.Payload[2:6]))

	default:
		logger.Debug("unknown record",
			"type", fmt.Sprintf("%#x", rec.Type),
			"len", len(rec.Payload))
	}
}

func stateName(s byte) string {
	if int(s) < len(stateNames) {
		return stateNames[int(s)]
	}
	return fmt.Sprintf("STATE_%d", s)
}
