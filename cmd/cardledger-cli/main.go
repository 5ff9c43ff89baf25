// Command cardledger-cli is a player/operator CLI for cardledgerd: it signs
// a login digest with a locally held keystore key, then dispatches
// lend/borrow/repay/withdraw/position/apy requests over HTTP, mirroring the
// teacher's nhb-cli subcommand dispatch shape.
package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"cardledger/cmd/internal/passphrase"
	"cardledger/crypto"
)

var apiEndpoint = envOr("CARDLEDGER_API", "http://localhost:8090")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate-key":
		cmdGenerateKey(os.Args[2:])
	case "lend":
		cmdOperation("lend", os.Args[2:])
	case "borrow":
		cmdOperation("borrow", os.Args[2:])
	case "repay":
		cmdOperation("repay", os.Args[2:])
	case "withdraw":
		cmdOperation("withdraw", os.Args[2:])
	case "position":
		cmdPosition(os.Args[2:])
	case "apy":
		cmdAPY()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: cardledger-cli <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key <keystore_path>                         - Generate a keystore-backed key")
	fmt.Println("  lend <keystore_path> <category> <tokenId> <power>    - Lend a card's power to the pool")
	fmt.Println("  borrow <keystore_path> <category> <tokenId> <power>  - Borrow against a card's collateral")
	fmt.Println("  repay <keystore_path> <category> <tokenId>           - Repay an open borrowing")
	fmt.Println("  withdraw <keystore_path> <category> <tokenId>        - Close a lending position")
	fmt.Println("  position <owner> <category> <tokenId>                - Read a position")
	fmt.Println("  apy                                                  - Read the current pool APY")
}

func cmdGenerateKey(args []string) {
	if len(args) < 1 {
		fmt.Println("Error: keystore path required")
		return
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		return
	}
	source := passphrase.NewSource("CARDLEDGER_KEYSTORE_PASSPHRASE")
	pass, err := source.Get()
	if err != nil {
		fmt.Printf("Error resolving passphrase: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(args[0], key, pass); err != nil {
		fmt.Printf("Error saving keystore: %v\n", err)
		return
	}
	fmt.Printf("Generated key, saved to %s\n", args[0])
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	source := passphrase.NewSource("CARDLEDGER_KEYSTORE_PASSPHRASE")
	pass, err := source.Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, pass)
}

func login(key *crypto.PrivateKey) (string, error) {
	addr := key.PubKey().Address()
	digest := loginDigest(addr)
	sig, err := key.Sign(digest)
	if err != nil {
		return "", err
	}
	body, _ := json.Marshal(map[string]string{
		"address":   addr.String(),
		"signature": hex.EncodeToString(sig),
	})
	resp, err := http.Post(apiEndpoint+"/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", apiEndpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected: %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// loginDigest must match cmd/cardledgerd's own loginDigest exactly; it is
// duplicated here rather than imported because the CLI and the daemon are
// independent deployables that only share an HTTP contract.
func loginDigest(addr crypto.Address) [32]byte {
	return sha256.Sum256(append([]byte("cardledgerd-login:"), addr.Bytes()...))
}

func cmdOperation(op string, args []string) {
	if len(args) < 3 {
		fmt.Printf("Error: usage is %s <keystore_path> <category> <tokenId> [power]\n", op)
		return
	}
	key, err := loadKey(args[0])
	if err != nil {
		fmt.Printf("Error loading key: %v\n", err)
		return
	}
	token, err := login(key)
	if err != nil {
		fmt.Printf("Error logging in: %v\n", err)
		return
	}

	category, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		fmt.Printf("Error: invalid category: %v\n", err)
		return
	}
	tokenID, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		fmt.Printf("Error: invalid token id: %v\n", err)
		return
	}

	payload := map[string]interface{}{"category": category, "tokenId": tokenID}
	switch op {
	case "lend":
		if len(args) < 4 {
			fmt.Println("Error: lend requires a power amount")
			return
		}
		power, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid power: %v\n", err)
			return
		}
		payload["power"] = power
	case "borrow":
		if len(args) < 4 {
			fmt.Println("Error: borrow requires a power amount")
			return
		}
		power, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid power: %v\n", err)
			return
		}
		payload["powerRequested"] = power
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, apiEndpoint+"/v1/"+op, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func cmdPosition(args []string) {
	if len(args) < 3 {
		fmt.Println("Error: usage is position <owner> <category> <tokenId>")
		return
	}
	url := fmt.Sprintf("%s/v1/positions/%s/%s/%s", apiEndpoint, args[0], args[1], args[2])
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("Error fetching position: %v\n", err)
		return
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func cmdAPY() {
	resp, err := http.Get(apiEndpoint + "/v1/apy")
	if err != nil {
		fmt.Printf("Error fetching APY: %v\n", err)
		return
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	pretty, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(pretty))
}
