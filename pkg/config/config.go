package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                    string // connection string for the database
	NatsURL               string // url of the nats server; empty means local fan-out only
	Addr                  string // listen addr of the relay server
	WaitForServices       string // duration to wait for other services to be ready
	LogLevel              string // sets the log level (zap log level values)
	SQLLogLevel           string // sets the log level for sql subsystem
	LogFormat             string // text vs json
	LogConfig             string // path to log config file
	EnableTelemetry       bool   // enable telemetry
	TelemetryEndpoint     string // endpoint for telemetry, "stdout" prints to console
	ProfilingPort         int    // port for profiling
	RoomCapacity          int    // max players per room
	RequiredClientVersion string // clients below this version are rejected
	AllowedOrigins        []string
	ProfileCacheTTL       string // how long loaded profiles are kept
)
