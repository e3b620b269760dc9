package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"miku/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: miku-ctl [--socket path] [toggle|start|stop|clear|test-mic|status]\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := "toggle"
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	r, err := ipc.Send(*socket, cmd)
	if err != nil {
		fmt.Println("miku-daemon not running:", err)
		os.Exit(1)
	}

	state := "idle"
	if r.Listening {
		state = "listening"
	}
	if !r.OK {
		fmt.Printf("%s failed: %s (%s)\n", cmd, r.Message, state)
		os.Exit(1)
	}
	fmt.Println(state)
}
