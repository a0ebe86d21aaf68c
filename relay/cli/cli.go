package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/errs"
	"github.com/Trinoooo/rawd/relay/config"
	"github.com/Trinoooo/rawd/relay/logs"
	"github.com/Trinoooo/rawd/relay/server"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   "",
		Usage:   "bind host, empty binds the wildcard address.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   consts.DefaultPort,
		Usage:   "server port number, 0 < port < 65535 are available.",
		Action: func(c *cli.Context, port int64) error {
			if port <= 0 || port > 65535 {
				e := errs.NewInvalidParamErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldParams, "port"), zap.Int64(consts.LogFieldValue, port))
				return e
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
	flagEngine = &cli.StringFlag{
		Name:    "engine",
		Aliases: []string{"e"},
		Value:   consts.EngineReactor,
		Usage:   "relay engine, reactor or goroutine.",
		Action: func(c *cli.Context, engine string) error {
			if _, exist := server.BuilderMap[engine]; !exist {
				e := errs.NewEngineNotFoundErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldEngine, engine))
				return e
			}
			return nil
		},
		EnvVars: []string{"RAWD_ENGINE"},
	}
	flagConnection = &cli.Int64Flag{
		Name:    "max-connect-number",
		Aliases: []string{"c"},
		Value:   0,
		Usage:   "max accepted connection number, 0 means unbounded, up to 4000.",
		Action: func(c *cli.Context, number int64) error {
			if number < 0 || number > 4000 {
				e := errs.NewInvalidParamErr()
				logs.Error(e.Error(), zap.String(consts.LogFieldParams, "number"), zap.Int64(consts.LogFieldValue, number))
				return e
			}
			return nil
		},
		EnvVars: []string{consts.MaxConns},
	}
)

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    "rawd",
			Usage:   "a raw tcp broadcast relay",
			Version: "0.1.0.260828_alpha",
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagHost,
		flagPort,
		flagEngine,
		flagConnection,
	}
}

func (wrapper *Wrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// flags win over the config file and env
		if ctx.IsSet("host") {
			cfg.Set(consts.KeyHost, ctx.String("host"))
		}
		if ctx.IsSet("port") {
			cfg.Set(consts.KeyPort, ctx.Int64("port"))
		}
		if ctx.IsSet("engine") {
			cfg.Set(consts.KeyEngine, ctx.String("engine"))
		}
		if ctx.IsSet("max-connect-number") {
			cfg.Set(consts.KeyMaxConns, ctx.Int64("max-connect-number"))
		}

		srv, err := server.Build(cfg)
		if err != nil {
			return err
		}

		go func() {
			// buffered so a signal arriving before the loop below is not lost
			sig := make(chan os.Signal, 5)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			for range sig {
				logs.Info("shutdown...")
				logs.Error(fmt.Sprintf("server shutdown, err: %v", srv.Close()))
			}
		}()

		return srv.Serve()
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}
