// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19wave/internal/api/connect"
)

var (
	app     = kingpin.New("19wave-admincli", "19wave admin client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("30s").Duration()

	// stats command
	statsCmd = app.Command("stats", "Show cache statistics").Default()

	// invalidate command
	invalidateCmd    = app.Command("invalidate", "Mark a ranking stale so the next request refetches it")
	invalidatePeriod = invalidateCmd.Arg("period", "Ranking period (all, month, week, day)").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewAdminServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewAdminTokenInterceptor(*token)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case statsCmd.FullCommand():
		stats(ctx, client)
	case invalidateCmd.FullCommand():
		invalidate(ctx, client, *invalidatePeriod)
	}
}

func stats(ctx context.Context, client *apiconnect.AdminServiceClient) {
	resp, err := client.GetStats(ctx, connect.NewRequest(&apiconnect.Empty{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	s := resp.Msg
	fmt.Println("\n=== CACHE STATISTICS ===")
	fmt.Printf("Hits: %d\n", s.Hits)
	fmt.Printf("Misses: %d\n", s.Misses)
	fmt.Printf("Fetches: %d\n", s.Fetches)
	fmt.Printf("Failures: %d\n", s.Failures)
	fmt.Printf("Subscribers: %d\n", s.Subscribers)
	fmt.Printf("Queue Size: %d\n", s.QueueLen)

	fmt.Println("\nRankings:")
	for _, r := range s.Rankings {
		fmt.Printf("  %-6s %s (tracks: %d", r.Period, formatEntryState(r.State), r.TrackCount)
		if r.FetchedAt != "" {
			fmt.Printf(", fetched: %s", formatAge(r.FetchedAt))
		}
		fmt.Println(")")
		if r.Error != "" {
			fmt.Printf("         last error: %s\n", r.Error)
		}
	}
	fmt.Println()
}

func invalidate(ctx context.Context, client *apiconnect.AdminServiceClient, period string) {
	resp, err := client.InvalidateRanking(ctx, connect.NewRequest(&apiconnect.InvalidateRankingRequest{
		Period: period,
	}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Msg.Success {
		fmt.Printf("Ranking %s invalidated\n", period)
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}

func formatEntryState(state string) string {
	switch state {
	case "fresh":
		return "✅ Fresh"
	case "stale":
		return "🕰  Stale"
	case "loading":
		return "⏳ Loading"
	case "failed":
		return "❌ Failed"
	case "absent":
		return "∅  Not fetched"
	default:
		return "❓ Unknown"
	}
}

func formatAge(fetchedAt string) string {
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return fetchedAt
	}
	return fmt.Sprintf("%s ago", time.Since(t).Truncate(time.Second))
}
