package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dhrubo326/imds/internal/client"

	"github.com/spf13/cobra"
)

var clientAddr string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Interactive client for the store",
	Long: `Connects to a running server and reads commands from stdin,
one per line, e.g. "set foo bar", "get foo", "zadd zs 1 a".
Type "exit" to quit.`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVarP(&clientAddr, "address", "a", "127.0.0.1:6677", "Server address to connect to")
}

func runClient(cmd *cobra.Command, args []string) error {
	c, err := client.Dial(clientAddr)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", clientAddr, err)
	}
	defer c.Close()

	fmt.Printf("connected to %s\n", clientAddr)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			return nil
		}

		status, payload, err := c.Do(strings.Fields(line)...)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		fmt.Printf("status: %d, response: %s\n", status, payload)
	}
}
