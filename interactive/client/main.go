//go:build unix

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/Trinoooo/rawd/consts"
	"github.com/Trinoooo/rawd/utils"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
)

func main() {
	wrapper := NewCliWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   "127.0.0.1",
		Usage:   "relay host name.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   consts.DefaultPort,
		Usage:   "relay port number, 0 < port < 65535 are available.",
		Action: func(c *cli.Context, port int64) error {
			if port <= 0 || port > 65535 {
				return errors.New("invalid params")
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
)

type CliWrapper struct {
	app *cli.App
}

func NewCliWrapper() *CliWrapper {
	wrapper := &CliWrapper{
		app: &cli.App{
			Name:    "rawd_client",
			Usage:   "client for - a raw tcp broadcast relay",
			Version: "0.1.0.260828_alpha",
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *CliWrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *CliWrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
}

func (wrapper *CliWrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagHost,
		flagPort,
	}
}

func (wrapper *CliWrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		addr := fmt.Sprintf("%s:%d", ctx.String("host"), ctx.Int64("port"))
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		input, err := readline.NewEx(&readline.Config{
			Prompt:      "> ",
			HistoryFile: fmt.Sprintf("/tmp/rawd/client/history_%s", time.Now().Format("20060102")),
		})
		if err != nil {
			log.Fatal(err)
		}
		defer input.Close()
		input.CaptureExitSignal()

		go func() {
			buf := make([]byte, consts.MaxBufSize)
			for {
				n, err := conn.Read(buf)
				if err != nil {
					fmt.Println(utils.WrapWarn("relay closed the connection"))
					os.Exit(0)
				}
				fmt.Print(utils.WrapPeer("%s", string(buf[:n])))
			}
		}()

		for {
			str, err := input.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return nil
				}
				log.Println(err)
				continue
			}
			if strings.EqualFold(str, "exit") {
				return nil
			}
			// no protocol: typed lines go out as raw bytes
			if _, err := conn.Write([]byte(str + "\n")); err != nil {
				log.Println(utils.WrapError("write failed, err: %v", err))
				return nil
			}
		}
	}
}

func (wrapper *CliWrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}
