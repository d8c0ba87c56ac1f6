// ledger-cli is a small operator client for the ledgerd HTTP API.
//
//	ledger-cli [-addr http://localhost:8661] <command> [args]
//
// Commands: store-slice <json>, get-slice <slice_id>, enqueue <json>, seal,
// verify, detect, repair, blocks, repairs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8661", "Base URL of the ledgerd API")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client := &client{base: *addr, http: &http.Client{Timeout: 30 * time.Second}}

	var err error
	switch args[0] {
	case "store-slice":
		err = requireArg(args, "store-slice <json>", func(body string) error {
			return client.post("/v1/slices", body)
		})
	case "get-slice":
		err = requireArg(args, "get-slice <slice_id>", func(id string) error {
			return client.get("/v1/slices/" + id)
		})
	case "enqueue":
		err = requireArg(args, "enqueue <json>", func(body string) error {
			return client.post("/v1/entries", body)
		})
	case "seal":
		err = client.post("/v1/seal", "")
	case "verify":
		err = client.get("/v1/verify")
	case "detect":
		err = client.get("/v1/tamper")
	case "repair":
		err = client.post("/v1/repair", "")
	case "blocks":
		err = client.get("/v1/blocks")
	case "repairs":
		err = client.get("/v1/repairs")
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ledger-cli [-addr url] <store-slice|get-slice|enqueue|seal|verify|detect|repair|blocks|repairs> [args]")
}

func requireArg(args []string, form string, run func(string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ledger-cli %s", form)
	}
	return run(args[1])
}

type client struct {
	base string
	http *http.Client
}

func (c *client) get(path string) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func (c *client) post(path, body string) error {
	var reader io.Reader
	if body != "" {
		if !json.Valid([]byte(body)) {
			return fmt.Errorf("body is not valid JSON: %s", body)
		}
		reader = bytes.NewReader([]byte(body))
	}
	resp, err := c.http.Post(c.base+path, "application/json", reader)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		fmt.Println(resp.Status)
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
