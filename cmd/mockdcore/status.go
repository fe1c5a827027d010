package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var statusAdminURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the bound ports of a running mockdcore instance",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAdminURL, "admin-url", "http://127.0.0.1:8080", "management API base URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	req, err := http.NewRequest(http.MethodPut, statusAdminURL+"/mockserver/status", nil)
	if err != nil {
		os.Exit(exitBadConfigured)
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unreachable:", err)
		os.Exit(exitBindFailure)
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Ports []int `json:"ports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	fmt.Printf("bound ports: %v\n", body.Ports)
	return nil
}
