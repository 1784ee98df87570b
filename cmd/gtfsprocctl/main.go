// Command gtfsprocctl is a small terminal client for gtfsprocd: it
// opens a TCP connection, sends one line per request, and prints the
// JSON response. Run with no request argument for an interactive
// read-eval-print loop, or pass the request on the command line for a
// single one-off transaction.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	prettyPrint bool
	dialTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "gtfsprocctl <host:port> [verb args...]",
	Short:        "Terminal client for a running gtfsprocd server",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&prettyPrint, "pretty", "p", false, "pretty-print the JSON response")
	rootCmd.Flags().DurationVarP(&dialTimeout, "timeout", "t", 5*time.Second, "connection timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	addr := args[0]
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	if len(args) > 1 {
		return once(conn, strings.Join(args[1:], " "))
	}
	return repl(conn, addr)
}

// once sends a single request line and prints its response, for
// scripted/regression use rather than interactive debugging.
func once(conn net.Conn, request string) error {
	if _, err := fmt.Fprintf(conn, "%s\n", request); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	printResponse(line)
	return nil
}

// repl is the interactive console: read a request line from stdin,
// send it, print the response, repeat until EOF or "quit".
func repl(conn net.Conn, addr string) error {
	fmt.Printf("connected to %s (type a verb + args, \"quit\" to exit)\n", addr)

	connReader := bufio.NewReader(conn)
	stdin := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return nil
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		resp, err := connReader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		printResponse(resp)
	}
}

func printResponse(line string) {
	line = strings.TrimSpace(line)
	if !prettyPrint {
		fmt.Println(line)
		return
	}
	var v any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		fmt.Println(line)
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(line)
		return
	}
	fmt.Println(string(b))
}
