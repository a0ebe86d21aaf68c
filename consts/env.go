package consts

const (
	Host     = "RAWD_HOST"               // bind host, ip or hostname
	Port     = "RAWD_PORT"               // bind port
	EnvVar   = "RAWD_ENV"                // runtime env, "test" switches dev logging
	MaxConns = "RAWD_MAX_CONNECT_NUMBER" // accepted connection cap, 0 means unbounded
	Home     = "HOME"
)
