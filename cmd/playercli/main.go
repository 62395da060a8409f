// Package main provides the player CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19wave/internal/api/connect"
	"github.com/osa030/19wave/internal/domain/track"
)

var (
	app     = kingpin.New("19wave-playercli", "19wave player client for testing")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	timeout = app.Flag("timeout", "Request timeout").Default("30s").Duration()

	// ranking command
	rankingCmd    = app.Command("ranking", "Show the ranking of a period")
	rankingPeriod = rankingCmd.Arg("period", "Ranking period (all, month, week, day)").Default("week").String()

	// context command
	contextCmd = app.Command("context", "Show the tracks of a context such as a genre")
	contextKey = contextCmd.Arg("key", "Context key").Required().String()

	// play-ranking command
	playRankingCmd     = app.Command("play-ranking", "Queue a ranking and play one of its tracks")
	playRankingPeriod  = playRankingCmd.Arg("period", "Ranking period").Required().String()
	playRankingTrackID = playRankingCmd.Arg("track-id", "Track ID (default: first track)").String()

	// play-context command
	playContextCmd     = app.Command("play-context", "Queue a context list and play one of its tracks")
	playContextKey     = playContextCmd.Arg("key", "Context key").Required().String()
	playContextTrackID = playContextCmd.Arg("track-id", "Track ID (default: first track)").String()

	// play command
	playCmd     = app.Command("play", "Play a track of the loaded queue")
	playTrackID = playCmd.Arg("track-id", "Track ID").Required().String()

	pauseCmd    = app.Command("pause", "Pause playback")
	resumeCmd   = app.Command("resume", "Resume playback")
	nextCmd     = app.Command("next", "Play the next track")
	previousCmd = app.Command("previous", "Play the previous track").Alias("prev")
	statusCmd   = app.Command("status", "Show playback status").Default()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")
)

type clients struct {
	player *apiconnect.PlayerServiceClient
	browse *apiconnect.BrowseServiceClient
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := clients{
		player: apiconnect.NewPlayerServiceClient(http.DefaultClient, *server),
		browse: apiconnect.NewBrowseServiceClient(http.DefaultClient, *server),
	}

	if command == subscribeCmd.FullCommand() {
		subscribe(context.Background(), c)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case rankingCmd.FullCommand():
		showRanking(ctx, c, *rankingPeriod)
	case contextCmd.FullCommand():
		showContext(ctx, c, *contextKey)
	case playRankingCmd.FullCommand():
		playRanking(ctx, c, *playRankingPeriod, *playRankingTrackID)
	case playContextCmd.FullCommand():
		playContext(ctx, c, *playContextKey, *playContextTrackID)
	case playCmd.FullCommand():
		printStatus(c.player.Play(ctx, connect.NewRequest(&apiconnect.PlayRequest{TrackID: *playTrackID})))
	case pauseCmd.FullCommand():
		printStatus(c.player.Pause(ctx, connect.NewRequest(&apiconnect.Empty{})))
	case resumeCmd.FullCommand():
		printStatus(c.player.Resume(ctx, connect.NewRequest(&apiconnect.Empty{})))
	case nextCmd.FullCommand():
		printStatus(c.player.Next(ctx, connect.NewRequest(&apiconnect.Empty{})))
	case previousCmd.FullCommand():
		printStatus(c.player.Previous(ctx, connect.NewRequest(&apiconnect.Empty{})))
	case statusCmd.FullCommand():
		printStatus(c.player.GetStatus(ctx, connect.NewRequest(&apiconnect.Empty{})))
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func fetchRanking(ctx context.Context, c clients, period string) *apiconnect.RankingResponse {
	resp, err := c.browse.GetRanking(ctx, connect.NewRequest(&apiconnect.GetRankingRequest{Period: period}))
	exitOnError(err)
	return resp.Msg
}

func fetchContext(ctx context.Context, c clients, key string) *apiconnect.ContextTracksResponse {
	resp, err := c.browse.ListContextTracks(ctx, connect.NewRequest(&apiconnect.ListContextTracksRequest{Key: key}))
	exitOnError(err)
	return resp.Msg
}

func showRanking(ctx context.Context, c clients, period string) {
	r := fetchRanking(ctx, c, period)
	fmt.Printf("\n=== RANKING: %s (fetched %s) ===\n", r.Period, r.FetchedAt)
	if r.Stale {
		fmt.Printf("⚠️  %s\n", r.Warning)
	}
	printTracks(r.Tracks)
}

func showContext(ctx context.Context, c clients, key string) {
	l := fetchContext(ctx, c, key)
	fmt.Printf("\n=== CONTEXT: %s (%s total, fetched %s) ===\n", l.Key, formatDuration(l.TotalDurationMs), l.FetchedAt)
	if l.Stale {
		fmt.Printf("⚠️  %s\n", l.Warning)
	}
	printTracks(l.Tracks)
}

func playRanking(ctx context.Context, c clients, period, trackID string) {
	r := fetchRanking(ctx, c, period)
	playFromList(ctx, c, r.Tracks, trackID)
}

func playContext(ctx context.Context, c clients, key, trackID string) {
	l := fetchContext(ctx, c, key)
	playFromList(ctx, c, l.Tracks, trackID)
}

func playFromList(ctx context.Context, c clients, tracks []apiconnect.Track, trackID string) {
	if len(tracks) == 0 {
		fmt.Println("Nothing to play: the list is empty")
		os.Exit(1)
	}
	if trackID == "" {
		trackID = tracks[0].ID
	}
	printStatus(c.player.PlayFromList(ctx, connect.NewRequest(&apiconnect.PlayFromListRequest{
		Tracks:  tracks,
		TrackID: trackID,
	})))
}

func printTracks(tracks []apiconnect.Track) {
	if len(tracks) == 0 {
		fmt.Println("  (no tracks)")
		return
	}
	for i, t := range tracks {
		fmt.Printf("  %3d. %s - %s [%s] (%s, plays: %d)\n",
			i+1, t.Title, t.Author, t.ID, formatDuration(t.DurationMs), t.PlayCount)
	}
	fmt.Println()
}

func printStatus(resp *connect.Response[apiconnect.StatusResponse], err error) {
	exitOnError(err)

	s := resp.Msg
	fmt.Printf("State: %s\n", formatState(s.State))
	fmt.Printf("Queue: %d tracks, cursor %d\n", s.QueueLen, s.Index)
	fmt.Printf("Subscribers: %d\n", s.Subscribers)
	if s.Track != nil {
		fmt.Printf("Track: %s - %s [%s]\n", s.Track.Title, s.Track.Author, s.Track.ID)
	}
	if s.Reason != "" {
		fmt.Printf("Reason: %s\n", s.Reason)
	}
}

func formatState(state string) string {
	switch state {
	case "idle":
		return "⏹  Idle"
	case "loading":
		return "⏳ Loading"
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "error":
		return "❌ Error"
	default:
		return "❓ Unknown"
	}
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return "--:--"
	}
	return track.FormatTime(time.Duration(ms) * time.Millisecond)
}

func subscribe(ctx context.Context, c clients) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stream, err := c.player.Subscribe(ctx, connect.NewRequest(&apiconnect.Empty{}))
	exitOnError(err)
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
		return
	}
	fmt.Println("\nUnsubscribed")
}

func printNotification(n *apiconnect.Notification) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, strings.ToUpper(strings.ReplaceAll(n.Event, "_", " ")))

	switch n.Kind {
	case "trend":
		fmt.Printf("  Ranking %s is now %s\n", n.Period, n.Event)
	default:
		fmt.Printf("  State: %s (cursor %d)\n", formatState(n.State), n.Index)
		if n.Track != nil {
			fmt.Printf("  Track: %s - %s [%s]\n", n.Track.Title, n.Track.Author, n.Track.ID)
		}
		if n.Reason != "" {
			fmt.Printf("  Reason: %s\n", n.Reason)
		}
	}
}
