package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"bondfarm/cmd/internal/passphrase"
	"bondfarm/core/types"
	"bondfarm/crypto"
)

const (
	envAPI        = "FARMD_URL"
	envToken      = "FARMD_TOKEN"
	envPassphrase = "FARMCTL_PASSPHRASE"
)

// Overridable in tests.
var (
	newPassphrase = func(confirm bool) interface{ Get() (string, error) } {
		src := passphrase.NewSource(envPassphrase, "Enter keystore passphrase")
		if confirm {
			src.WithConfirmation()
		}
		return src
	}
	nowFn = time.Now
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("farmctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	api := global.String("api", envOr(envAPI, "http://localhost:8480"), "farmd base URL")
	token := global.String("token", os.Getenv(envToken), "bearer token for submit")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 1
	}
	client := newAPIClient(*api, *token)
	ctx := context.Background()

	switch strings.ToLower(rest[0]) {
	case "keygen":
		return runKeygen(rest[1:], stdout, stderr)
	case "address":
		return runAddress(rest[1:], stdout, stderr)
	case "submit":
		return runSubmit(ctx, client, rest[1:], stdout, stderr)
	case "get":
		if len(rest) < 2 {
			fmt.Fprintln(stderr, "Usage: farmctl get <path>   e.g. farm/pools, bond/config")
			return 1
		}
		return printResult(client.get(ctx, "/v1/"+strings.TrimPrefix(rest[1], "/")))(stdout, stderr)
	case "operations":
		return printResult(client.get(ctx, "/v1/operations"))(stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", rest[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: farmctl [--api URL] [--token JWT] <command>

Commands:
  keygen <keystore>                       create an encrypted key
  address <keystore>                      print the key's address
  submit --key <keystore> <op> [payload]  sign and submit an operation
  get <path>                              query /v1/<path>
  operations                              list operation names`)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farmctl keygen <keystore>")
		return 1
	}
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", path)
		return 1
	}
	pass, err := newPassphrase(true).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := newPassphrase(false).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farmctl address <keystore>")
		return 1
	}
	key, err := loadKey(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runSubmit(ctx context.Context, client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyPath := fs.String("key", "", "keystore of the signing account")
	nonceFlag := fs.Uint64("nonce", 0, "explicit nonce (default: next account nonce)")
	ttl := fs.Duration("ttl", 5*time.Minute, "envelope lifetime; 0 disables expiry")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if *keyPath == "" || len(rest) < 1 || len(rest) > 2 {
		fmt.Fprintln(stderr, "Usage: farmctl submit --key <keystore> [--nonce N] [--ttl 5m] <operation> [payload-json]")
		return 1
	}
	payload := json.RawMessage("{}")
	if len(rest) == 2 {
		if !json.Valid([]byte(rest[1])) {
			fmt.Fprintln(stderr, "Error: payload must be valid JSON")
			return 1
		}
		payload = json.RawMessage(rest[1])
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	nonce := *nonceFlag
	if nonce == 0 {
		last, err := client.nonce(ctx, key.PubKey().Address())
		if err != nil {
			fmt.Fprintf(stderr, "Error: fetch nonce: %v\n", err)
			return 1
		}
		nonce = last + 1
	}
	env := &types.Envelope{Operation: rest[0], Payload: payload, Nonce: nonce}
	if *ttl > 0 {
		env.Expiry = nowFn().Add(*ttl).Unix()
	}
	if err := env.Sign(key); err != nil {
		fmt.Fprintf(stderr, "Error: sign: %v\n", err)
		return 1
	}
	return printResult(client.submit(ctx, env))(stdout, stderr)
}

func printResult(raw json.RawMessage, err error) func(stdout, stderr io.Writer) int {
	return func(stdout, stderr io.Writer) int {
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		var decoded interface{}
		if json.Unmarshal(raw, &decoded) != nil {
			fmt.Fprintln(stdout, strings.TrimSpace(string(raw)))
			return 0
		}
		pretty, _ := json.MarshalIndent(decoded, "", "  ")
		fmt.Fprintln(stdout, string(pretty))
		return 0
	}
}
