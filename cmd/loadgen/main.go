// Load generator for exercising the Heron policy request workflow.
//
// Usage:
//   go run cmd/loadgen/main.go -url http://localhost:8080 -count 1000 -workers 10
//
// This tool:
//   1. Creates synthetic policy requests across categories and amounts
//   2. Polls each request until the async workflow reaches a terminal state
//   3. Reports latency, throughput and the approval/rejection split
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type createRequest struct {
	CustomerID                string            `json:"customerId"`
	ProductID                 string            `json:"productId"`
	Category                  string            `json:"category"`
	SalesChannel              string            `json:"salesChannel"`
	PaymentMethod             string            `json:"paymentMethod"`
	TotalMonthlyPremiumAmount string            `json:"totalMonthlyPremiumAmount"`
	InsuredAmount             string            `json:"insuredAmount"`
	Coverages                 map[string]string `json:"coverages"`
	Assistances               []string          `json:"assistances"`
}

type policyResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// metrics tracks aggregate load test results.
type metrics struct {
	Created   int64
	Approved  int64
	Rejected  int64
	Cancelled int64
	TimedOut  int64
	Errors    int64

	CreateLatencyMs int64
	SettleLatencyMs int64
}

var (
	categories     = []string{"AUTO", "LIFE", "RESIDENTIAL", "TRAVEL", "OTHER"}
	channels       = []string{"MOBILE", "WEBSITE", "CALL_CENTER", "BROKER"}
	paymentMethods = []string{"CREDIT_CARD", "DEBIT_CARD", "BANK_SLIP", "PIX", "BANK_TRANSFER"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Heron base URL")
	count := flag.Int("count", 1000, "Number of policy requests to create")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	maxAmount := flag.Int("max-amount", 900000, "Upper bound for random insured amounts")
	settleWait := flag.Duration("settle-wait", 10*time.Second, "How long to poll for a terminal status")
	verbose := flag.Bool("verbose", false, "Print each request result")
	flag.Parse()

	fmt.Println("HERON LOADGEN - policy request workflow")
	fmt.Printf("  URL:      %s\n", *baseURL)
	fmt.Printf("  Count:    %d\n", *count)
	fmt.Printf("  Workers:  %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}
	fmt.Println("Heron is healthy, starting load")

	start := time.Now()
	m := run(*baseURL, *count, *workers, *maxAmount, *settleWait, *verbose)
	printResults(m, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func run(baseURL string, count, numWorkers, maxAmount int, settleWait time.Duration, verbose bool) *metrics {
	m := &metrics{}
	work := make(chan int, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}

			for range work {
				processOne(client, rng, baseURL, maxAmount, settleWait, verbose, m)
			}
		}(int64(i) + time.Now().UnixNano())
	}

	for i := 0; i < count; i++ {
		work <- i
	}
	close(work)
	wg.Wait()

	return m
}

func processOne(client *http.Client, rng *rand.Rand, baseURL string, maxAmount int, settleWait time.Duration, verbose bool, m *metrics) {
	req := randomRequest(rng, maxAmount)

	start := time.Now()
	created, err := create(client, baseURL, req)
	atomic.AddInt64(&m.CreateLatencyMs, time.Since(start).Milliseconds())
	if err != nil {
		atomic.AddInt64(&m.Errors, 1)
		if verbose {
			fmt.Printf("ERROR: create failed: %v\n", err)
		}
		return
	}
	atomic.AddInt64(&m.Created, 1)

	// Poll until the async pipeline settles
	status, err := waitTerminal(client, baseURL, created.ID, settleWait)
	atomic.AddInt64(&m.SettleLatencyMs, time.Since(start).Milliseconds())
	if err != nil {
		atomic.AddInt64(&m.Errors, 1)
		return
	}

	switch status {
	case "APPROVED":
		atomic.AddInt64(&m.Approved, 1)
	case "REJECTED":
		atomic.AddInt64(&m.Rejected, 1)
	case "CANCELLED":
		atomic.AddInt64(&m.Cancelled, 1)
	default:
		atomic.AddInt64(&m.TimedOut, 1)
	}

	if verbose {
		fmt.Printf("%s | %-11s | insured %-10s -> %s\n",
			created.ID, req.Category, req.InsuredAmount, status)
	}
}

func randomRequest(rng *rand.Rand, maxAmount int) createRequest {
	amount := 1 + rng.Intn(maxAmount)
	premium := 10 + rng.Intn(500)

	return createRequest{
		CustomerID:                uuid.New().String(),
		ProductID:                 uuid.New().String(),
		Category:                  categories[rng.Intn(len(categories))],
		SalesChannel:              channels[rng.Intn(len(channels))],
		PaymentMethod:             paymentMethods[rng.Intn(len(paymentMethods))],
		TotalMonthlyPremiumAmount: fmt.Sprintf("%d.00", premium),
		InsuredAmount:             fmt.Sprintf("%d.00", amount),
		Coverages: map[string]string{
			"BASIC": fmt.Sprintf("%d.00", amount),
		},
		Assistances: []string{"24H_ASSISTANCE"},
	}
}

func create(client *http.Client, baseURL string, req createRequest) (*policyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/api/v1/policy-requests", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out policyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func waitTerminal(client *http.Client, baseURL, id string, settleWait time.Duration) (string, error) {
	deadline := time.Now().Add(settleWait)
	status := ""

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/api/v1/policy-requests/" + id)
		if err != nil {
			return "", err
		}

		var out policyResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return "", err
		}

		status = out.Status
		switch status {
		case "APPROVED", "REJECTED", "CANCELLED":
			return status, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return status, nil
}

func printResults(m *metrics, duration time.Duration) {
	fmt.Println("\nRESULTS")
	fmt.Printf("  Created:    %d\n", m.Created)
	fmt.Printf("  Approved:   %d\n", m.Approved)
	fmt.Printf("  Rejected:   %d\n", m.Rejected)
	fmt.Printf("  Cancelled:  %d\n", m.Cancelled)
	fmt.Printf("  Unsettled:  %d\n", m.TimedOut)
	fmt.Printf("  Errors:     %d\n", m.Errors)

	fmt.Println("\nPERFORMANCE")
	fmt.Printf("  Total Duration:  %v\n", duration.Round(time.Millisecond))
	if m.Created > 0 {
		fmt.Printf("  Avg Create:      %.2f ms\n", float64(m.CreateLatencyMs)/float64(m.Created))
		fmt.Printf("  Avg Settle:      %.2f ms\n", float64(m.SettleLatencyMs)/float64(m.Created))
		fmt.Printf("  Throughput:      %.2f req/sec\n", float64(m.Created)/duration.Seconds())
	}
	fmt.Println()
}
