// internal/config/flags.go
package config

import "github.com/spf13/pflag"

// AddFlags registers command-line overrides on fs.
// Defaults come from s, so call it after LoadSettings: a flag given on
// the command line wins over the environment.
func AddFlags(fs *pflag.FlagSet, s *Settings) {
	fs.StringVar(&s.ConfigPath, "config", s.ConfigPath, "motor registry file (CONFIG_PATH)")
	fs.StringVar(&s.Port, "port", s.Port, "serial port of the servo bus (SERIAL_PORT)")
	fs.Uint32Var(&s.BaudRate, "baudrate", s.BaudRate, "serial baud rate (BAUDRATE)")
	fs.Uint64Var(&s.TimeoutMs, "timeout-ms", s.TimeoutMs, "serial I/O timeout in milliseconds (SERIAL_TIMEOUT_MS)")
	fs.StringVar(&s.Socket, "socket", s.Socket, "dataflow Unix socket, empty for stdin/stdout (DATAFLOW_SOCKET)")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "debug, info, warn or error (LOG_LEVEL)")
	fs.StringVar(&s.LogFile, "log-file", s.LogFile, "also write JSON logs to this rotated file (LOG_FILE)")
	fs.StringVar(&s.Mirror.Endpoint, "mirror", s.Mirror.Endpoint, "Modbus TCP endpoint for the state mirror (MIRROR_ENDPOINT)")
}
