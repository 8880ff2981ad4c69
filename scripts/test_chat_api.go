package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:8080/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func postJSON(url string, body interface{}) (map[string]interface{}, int, error) {
	jsonBody, _ := json.Marshal(body)
	resp, err := http.Post(baseURL+url, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func getJSON(url string, out interface{}) (int, error) {
	resp, err := http.Get(baseURL + url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_ = json.NewDecoder(resp.Body).Decode(out)
	return resp.StatusCode, nil
}

func main() {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(cyan("=== Chat Relay API Smoke Test ==="))

	// 1. Health
	var health map[string]interface{}
	if _, err := getJSON("/health", &health); err != nil {
		fmt.Println(red("FAIL"), "health:", err)
		os.Exit(1)
	}
	fmt.Println(green("OK"), "health:")
	prettyPrint(health)

	// 2. Create session
	created, status, err := postJSON("/sessions", map[string]string{})
	if err != nil || status != 200 {
		fmt.Println(red("FAIL"), "create session:", status, err)
		os.Exit(1)
	}
	sessionID, _ := created["id"].(string)
	fmt.Println(green("OK"), "created session", sessionID)

	// 3. Streamed chat
	jsonBody, _ := json.Marshal(map[string]string{"text": "Say hello in five words."})
	resp, err := http.Post(baseURL+"/chat/stream", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		fmt.Println(red("FAIL"), "chat stream:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Println(cyan("--- stream frames ---"))
	scanner := bufio.NewScanner(resp.Body)
	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Chunk string `json:"chunk"`
			Done  bool   `json:"done"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(line[6:]), &event); err != nil {
			continue
		}
		switch {
		case event.Error != "":
			fmt.Println(red("stream error:"), event.Error)
			os.Exit(1)
		case event.Done:
			fmt.Println()
			fmt.Println(green("OK"), "stream done, reply:", full.String())
		default:
			full.WriteString(event.Chunk)
			fmt.Print(event.Chunk)
		}
	}

	// 4. History should hold exactly the one exchange
	var history []map[string]interface{}
	if _, err := getJSON("/history", &history); err != nil {
		fmt.Println(red("FAIL"), "history:", err)
		os.Exit(1)
	}
	if len(history) != 2 {
		fmt.Println(red("FAIL"), "expected 2 messages, got", len(history))
		os.Exit(1)
	}
	fmt.Println(green("OK"), "history has user + assistant messages")

	fmt.Println(cyan("=== All checks passed ==="))
}
