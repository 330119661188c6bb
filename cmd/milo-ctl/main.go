package main

import (
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/spf13/pflag"

	"milo/internal/ipc"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] status|reload|quiet|shutdown\n", filepath.Base(os.Args[0]))
	cli.PrintDefaults()
	os.Exit(2)
}

func main() {
	dataDir := cli.StringP("data", "d", "", "Data directory (default: user config dir)")
	cli.Usage = usage
	cli.Parse()

	args := cli.Args()
	if len(args) != 1 {
		usage()
	}
	cmd := args[0]

	switch cmd {
	case ipc.CmdStatus, ipc.CmdReload, ipc.CmdQuiet, ipc.CmdShutdown:
	default:
		usage()
	}

	dir := *dataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot locate data directory:", err)
			os.Exit(1)
		}
		dir = filepath.Join(base, "milo")
	}

	resp, err := ipc.Send(ipc.SocketPath(dir), cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Error)
		os.Exit(1)
	}
	if cmd == ipc.CmdStatus {
		fmt.Println("status:", resp.Status)
		fmt.Println("agent: ", resp.Agent)
		printList("agents", resp.Agents)
		printList("inputs", resp.Inputs)
		printList("outputs", resp.Outputs)
		printList("voices", resp.Voices)
		printList("languages", resp.Languages)
	}
}

func printList(label string, items []string) {
	fmt.Printf("%s:\n", label)
	for _, item := range items {
		fmt.Println("  ", item)
	}
}
