package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/finova-network/reward-engine/internal/config"
)

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to a JSON event envelope (reads stdin if omitted)")
	rootCmd.AddCommand(ingestCmd)
}

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Submit a single event envelope to the running daemon over HTTP",
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var raw []byte
	if ingestFile != "" {
		raw, err = os.ReadFile(ingestFile)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read event envelope: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parse event envelope: %w", err)
	}

	var resp map[string]interface{}
	if err := postJSON(apiBaseURL(cfg)+"/v1/events", payload, &resp); err != nil {
		return err
	}

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	return nil
}
