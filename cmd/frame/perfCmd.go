package frame

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dFrame/cmd/util"
	"github.com/ValentinKolb/dFrame/rpc/client"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for frame servers",
		Long:    "Runs concurrent clients, each on its own connection, that send fixed size payloads and wait for the reply. The round trip latency of all clients is aggregated in one timer.",
		PreRunE: processPerfConfig,
		RunE:    runPerf,
	}
	perfClients     = 10
	perfRequests    = 1000
	perfPayloadSize = 64
)

var percentiles = []float64{0.5, 0.9, 0.95, 0.99, 0.999}

func init() {
	// add flags
	key := "clients"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients (one connection each)"))
	key = "requests"
	PerfCmd.Flags().Int(key, 1000, util.WrapString("Number of requests every client sends"))
	key = "payload-size"
	PerfCmd.Flags().Int(key, 64, util.WrapString("Size of every request payload in bytes"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, args []string) error {
	if err := processClientConfig(cmd, args); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfClients = viper.GetInt("clients")
	perfRequests = viper.GetInt("requests")
	perfPayloadSize = viper.GetInt("payload-size")

	if perfClients <= 0 || perfRequests <= 0 || perfPayloadSize < 0 {
		return fmt.Errorf("clients and requests must be positive, payload-size must not be negative")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for frame servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Clients: %d, Requests per client: %d, Payload: %d bytes\n", perfClients, perfRequests, perfPayloadSize)
	fmt.Println()

	// connect all clients before the clock starts
	registry := gometrics.NewRegistry()
	clients := make([]*client.Client, 0, perfClients)
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	for i := 0; i < perfClients; i++ {
		c, err := newClient(registry)
		if err != nil {
			return err
		}
		clients = append(clients, c)
	}

	fmt.Println("starting test...")

	payload := bytes.Repeat([]byte{'x'}, perfPayloadSize)
	start := time.Now()

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(id int, c *client.Client) {
			defer wg.Done()
			for r := 0; r < perfRequests; r++ {
				if _, err := c.Do(payload); err != nil {
					log.Printf("(client %d) - request failed: %v\n", id, err)
					return
				}
			}
		}(i, c)
	}
	wg.Wait()

	elapsed := time.Since(start)
	stats := gometrics.GetOrRegisterTimer(client.MetricRoundTrip, registry).Snapshot()
	errCount := gometrics.GetOrRegisterCounter(client.MetricErrors, registry).Count()

	printStats(stats, errCount, elapsed)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, stats, errCount, elapsed); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// printStats prints the timer snapshot in a formatted way
func printStats(stats gometrics.Timer, errCount int64, elapsed time.Duration) {
	throughput := float64(stats.Count()) / elapsed.Seconds()

	fmt.Println()
	fmt.Printf("%-20s%d\n", "requests", stats.Count())
	fmt.Printf("%-20s%d\n", "errors", errCount)
	fmt.Printf("%-20s%s\n", "duration", elapsed)
	fmt.Printf("%-20s%.0f req/sec\n", "throughput", throughput)
	fmt.Printf("%-20s%s\n", "min", time.Duration(stats.Min()))
	fmt.Printf("%-20s%s\n", "mean", time.Duration(stats.Mean()))
	fmt.Printf("%-20s%s\n", "stddev", time.Duration(stats.StdDev()))
	fmt.Printf("%-20s%s\n", "max", time.Duration(stats.Max()))

	for i, p := range stats.Percentiles(percentiles) {
		fmt.Printf("%-20s%s\n", fmt.Sprintf("p%g", percentiles[i]*100), time.Duration(p))
	}
}

// writeResultsToCSV writes the timer snapshot to a CSV file
func writeResultsToCSV(csvPath string, stats gometrics.Timer, errCount int64, elapsed time.Duration) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Requests", "Errors", "DurationNs", "ReqPerSec",
		"MinNs", "MeanNs", "MaxNs", "P50Ns", "P90Ns", "P95Ns", "P99Ns", "P999Ns",
		"Endpoint", "Transport", "Clients", "RequestsPerClient", "PayloadSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	row := []string{
		strconv.FormatInt(stats.Count(), 10),
		strconv.FormatInt(errCount, 10),
		strconv.FormatInt(elapsed.Nanoseconds(), 10),
		fmt.Sprintf("%.0f", float64(stats.Count())/elapsed.Seconds()),
		strconv.FormatInt(stats.Min(), 10),
		fmt.Sprintf("%.0f", stats.Mean()),
		strconv.FormatInt(stats.Max(), 10),
	}
	for _, p := range stats.Percentiles(percentiles) {
		row = append(row, fmt.Sprintf("%.0f", p))
	}
	row = append(row,
		clientConfig.Transport.Endpoint,
		viper.GetString("transport"),
		strconv.Itoa(perfClients),
		strconv.Itoa(perfRequests),
		strconv.Itoa(perfPayloadSize),
	)

	if err := writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}

	return nil
}
