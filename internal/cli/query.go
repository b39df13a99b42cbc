package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/finova-network/reward-engine/internal/config"
)

func init() {
	rootCmd.AddCommand(networkCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(claimCmd)
	deadLettersCmd.AddCommand(deadLettersListCmd)
	rootCmd.AddCommand(deadLettersCmd)

	claimCmd.Flags().StringVar(&claimNonce, "nonce", "", "claim nonce (generated server-side if omitted)")
	deadLettersListCmd.Flags().StringVar(&deadLetterKind, "kind", "", "filter by kind: EVENT, CLAIM, or PROPAGATION")
	deadLettersListCmd.Flags().IntVar(&deadLetterLimit, "limit", 50, "maximum rows to return")
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Print the running daemon's network phase and total user count",
	RunE:  runNetwork,
}

type networkStateDTO struct {
	TotalUsers uint64  `json:"total_users"`
	Phase      int     `json:"phase"`
	BaseRate   float64 `json:"base_rate_fin_per_hour"`
}

func runNetwork(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var snap networkStateDTO
	if err := getJSON(apiBaseURL(cfg)+"/v1/network", &snap); err != nil {
		return err
	}

	fmt.Printf("phase:       %d\n", snap.Phase)
	fmt.Printf("total users: %s\n", humanCount(snap.TotalUsers))
	fmt.Printf("base rate:   %.4f $FIN/hour\n", snap.BaseRate)
	return nil
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <user-id>",
	Short: "Print a user's reward-state snapshot from the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

type userSnapshotDTO struct {
	UserID         string  `json:"user_id"`
	PendingBalance string  `json:"pending_balance"`
	CurrentRate    float64 `json:"current_rate_fin_per_hour"`
	XP             struct {
		TotalXP uint64 `json:"TotalXP"`
		Level   int    `json:"Level"`
	} `json:"xp"`
	RP struct {
		TotalRP uint64 `json:"TotalRP"`
		Tier    string `json:"Tier"`
	} `json:"rp"`
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	var snap userSnapshotDTO
	if err := getJSON(apiBaseURL(cfg)+"/v1/users/"+args[0], &snap); err != nil {
		return err
	}

	fmt.Printf("user:            %s\n", snap.UserID)
	fmt.Printf("pending balance: %s $FIN\n", snap.PendingBalance)
	fmt.Printf("current rate:    %.4f $FIN/hour\n", snap.CurrentRate)
	fmt.Printf("xp:              %s (level %d)\n", humanCount(snap.XP.TotalXP), snap.XP.Level)
	fmt.Printf("rp:              %s (%s)\n", humanCount(snap.RP.TotalRP), snap.RP.Tier)
	return nil
}

var claimNonce string

var claimCmd = &cobra.Command{
	Use:   "claim <user-id>",
	Short: "Settle a user's pending balance against the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runClaim,
}

type claimResponseDTO struct {
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	CumulativeEarned string `json:"cumulative_earned"`
	ClaimNonce       string `json:"claim_nonce"`
	Status           string `json:"status"`
}

func runClaim(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	nonce := claimNonce
	if nonce == "" {
		nonce = uuid.NewString()
	}

	var resp claimResponseDTO
	req := map[string]string{"user_id": args[0], "claim_nonce": nonce}
	if err := postJSON(apiBaseURL(cfg)+"/v1/claims", req, &resp); err != nil {
		return err
	}

	fmt.Printf("user:       %s\n", resp.UserID)
	fmt.Printf("claimed:    %s $FIN\n", resp.Amount)
	fmt.Printf("cumulative: %s $FIN\n", resp.CumulativeEarned)
	fmt.Printf("nonce:      %s\n", resp.ClaimNonce)
	fmt.Printf("status:     %s\n", resp.Status)
	return nil
}

var (
	deadLetterKind  string
	deadLetterLimit int
)

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Inspect work items that exhausted their retry budget",
}

var deadLettersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List parked dead letters from the running daemon",
	RunE:  runDeadLettersList,
}

type deadLetterDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	UserID    string `json:"user_id"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
	FailedAt  string `json:"failed_at"`
}

func runDeadLettersList(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/dead-letters?limit=%d", apiBaseURL(cfg), deadLetterLimit)
	if deadLetterKind != "" {
		url += "&kind=" + deadLetterKind
	}

	var items []deadLetterDTO
	if err := getJSON(url, &items); err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("no dead letters")
		return nil
	}
	for _, dl := range items {
		fmt.Printf("%s  %-12s user=%-20s attempts=%d  %s\n", dl.ID, dl.Kind, dl.UserID, dl.Attempts, dl.LastError)
	}
	return nil
}
