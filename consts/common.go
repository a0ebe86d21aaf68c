package consts

const (
	B = 1 << (iota * 10)
	KB
	MB
	GB
)

const HelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
COMMANDS:
{{range .Commands}}{{if not .HideHelp}}   {{join .Names ", "}}{{ "\t"}}{{.Usage}}{{ "\n" }}{{end}}{{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}{{if .Copyright }}
COPYRIGHT:
   {{.Copyright}}
   {{end}}{{if .Version}}
VERSION:
   {{.Version}}
   {{end}}
`

const (
	// DefaultPort is the historical rawd port.
	DefaultPort = 6601
	// MaxBufSize caps a single read from a client; a longer stream is
	// relayed as multiple independent chunks.
	MaxBufSize = 255
	// ListenBacklog is the depth of the kernel queue of not-yet-accepted
	// connections. It does not cap accepted connections.
	ListenBacklog = 10
)

// Config keys.
const (
	KeyEngine      = "engine"
	KeyHost        = "host"
	KeyPort        = "port"
	KeyMaxConns    = "max_connect_number"
	KeyPushGateway = "push_gateway"
)

// Engine names, see relay/server.BuilderMap.
const (
	EngineReactor   = "reactor"
	EngineGoroutine = "goroutine"
)

// Log field names.
const (
	LogFieldParams = "params"
	LogFieldValue  = "value"
	LogFieldEngine = "engine"
)
