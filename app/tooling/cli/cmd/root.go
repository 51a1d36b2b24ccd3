// Package cmd contains the chainctl commands.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/chainsync/business/web/errs"
	"github.com/spf13/cobra"
)

var url string

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8180", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:          "chainctl",
	Short:        "Talk to a blockchain node",
	SilenceUsage: true,
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// =============================================================================

var httpClient = http.Client{
	Timeout: 10 * time.Second,
}

func get(path string, v any) error {
	resp, err := httpClient.Get(url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

func post(path string, body any, v any) error {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	resp, err := httpClient.Post(url+path, "application/json", r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

// decode reads the response into v, or the error the node sent back.
func decode(resp *http.Response, v any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("node responded %s", resp.Status)
		}

		if len(er.Fields) > 0 {
			return fmt.Errorf("node responded %s: %s: %v", resp.Status, er.Error, er.Fields)
		}
		return fmt.Errorf("node responded %s: %s", resp.Status, er.Error)
	}

	if v == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
