package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func registerLogCommands(root *cobra.Command) {
	logsCmd := &cobra.Command{Use: "logs", Short: "Action log operations"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all action logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogsList(apiFlag, tokenFlag, os.Stdout)
		},
	}
	logsCmd.AddCommand(listCmd)

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Create an action log",
		RunE: func(cmd *cobra.Command, args []string) error {
			challengeID, _ := cmd.Flags().GetInt64("challenge")
			actionType, _ := cmd.Flags().GetInt("type")
			detail, _ := cmd.Flags().GetString("detail")
			return runLogsPost(apiFlag, tokenFlag, challengeID, actionType, detail, os.Stdout)
		},
	}
	postCmd.Flags().Int64P("challenge", "c", 0, "Challenge ID (0 for none)")
	postCmd.Flags().IntP("type", "y", 0, "Action type")
	postCmd.Flags().StringP("detail", "d", "", "Action detail (required)")
	_ = postCmd.MarkFlagRequired("detail")
	logsCmd.AddCommand(postCmd)

	userCmd := &cobra.Command{
		Use:   "user <userId>",
		Short: "List one user's action logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogsByUser(apiFlag, tokenFlag, args[0], os.Stdout)
		},
	}
	logsCmd.AddCommand(userCmd)

	root.AddCommand(logsCmd)
}

func newAPIClient(base, token string) *resty.Client {
	c := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if token != "" {
		c.SetHeader("Authorization", "Token "+token)
	}
	return c
}

func runLogsList(base, token string, out io.Writer) error {
	resp, err := newAPIClient(base, token).R().Get("/action_logs")
	if err != nil {
		return err
	}
	return printResponse(resp.Body(), out)
}

func runLogsPost(base, token string, challengeID int64, actionType int, detail string, out io.Writer) error {
	body := map[string]interface{}{
		"challenge_id": nil,
		"actionType":   actionType,
		"actionDetail": detail,
	}
	if challengeID != 0 {
		body["challenge_id"] = challengeID
	}

	resp, err := newAPIClient(base, token).R().SetBody(body).Post("/action_logs")
	if err != nil {
		return err
	}
	return printResponse(resp.Body(), out)
}

func runLogsByUser(base, token, userID string, out io.Writer) error {
	resp, err := newAPIClient(base, token).R().Get("/action_logs/user/" + userID)
	if err != nil {
		return err
	}
	return printResponse(resp.Body(), out)
}

// printResponse pretty-prints the API envelope, falling back to raw output
// for non-JSON bodies.
func printResponse(body []byte, out io.Writer) error {
	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		_, werr := out.Write(body)
		return werr
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pretty); err != nil {
		return err
	}
	if success, ok := pretty["success"].(bool); ok && !success {
		return fmt.Errorf("request failed: %v", pretty["error"])
	}
	return nil
}
