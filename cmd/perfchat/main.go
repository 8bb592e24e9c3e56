// Command perfchat replays a scripted conversation against a running switchboard
// over the chat websocket and reports round-trip latency alongside the server's
// per-stage window.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ent0n29/switchboard/internal/observability"
	"github.com/ent0n29/switchboard/internal/protocol"
)

type options struct {
	baseURL        string
	turns          int
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	fetchStages    bool
	verbose        bool
}

var defaultMessages = []string{
	"Hi, I have a question about my last invoice.",
	"I was charged twice for the same order.",
	"Can you tell me when the refund will arrive?",
	"The app keeps crashing when I open settings.",
	"This is the third time I ask, I need this fixed urgently!",
}

type turnResult struct {
	RTT              time.Duration
	Route            string
	Escalated        bool
	ServerResponseMS int64
}

type summary struct {
	Turns       int            `json:"turns"`
	Escalations int            `json:"escalations"`
	Routes      map[string]int `json:"routes"`
	AvgMS       float64        `json:"avg_ms"`
	P50MS       float64        `json:"p50_ms"`
	P95MS       float64        `json:"p95_ms"`
	MaxMS       float64        `json:"max_ms"`
	ServerAvgMS float64        `json:"server_avg_ms"`
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		cfg           options
		textsRaw      string
		startDelayMS  int
		interTurnMS   int
		turnTimeoutMS int
	)
	cmd := &cobra.Command{
		Use:           "perfchat",
		Short:         "Replay chat turns over the websocket and report latency",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := normalizeOptions(cfg, textsRaw, startDelayMS, interTurnMS, turnTimeoutMS)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 8*time.Minute)
			defer cancel()
			return run(ctx, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "switchboard base URL")
	f.IntVar(&cfg.turns, "turns", 10, "number of messages to replay")
	f.IntVar(&startDelayMS, "start-delay-ms", 0, "delay before the first message in milliseconds")
	f.IntVar(&interTurnMS, "inter-turn-ms", 150, "delay between messages in milliseconds")
	f.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for each chat_reply in milliseconds")
	f.StringVar(&textsRaw, "texts", "", "messages separated by '|' (optional)")
	f.BoolVar(&cfg.fetchStages, "stages", true, "fetch /v1/perf/latency after the replay")
	f.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	return cmd
}

func normalizeOptions(cfg options, textsRaw string, startDelayMS, interTurnMS, turnTimeoutMS int) (options, error) {
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if startDelayMS < 0 {
		startDelayMS = 0
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.startDelay = time.Duration(startDelayMS) * time.Millisecond
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	cfg.texts = nil
	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultMessages...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty messages")
		}
	}
	return cfg, nil
}

func run(ctx context.Context, cfg options, out io.Writer) error {
	wsURL, err := chatWSURL(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	sessionID := "perf-" + uuid.NewString()
	if cfg.verbose {
		fmt.Fprintf(out, "perfchat: session=%s turns=%d\n", sessionID, cfg.turns)
	}
	if cfg.startDelay > 0 {
		time.Sleep(cfg.startDelay)
	}

	replies := make(chan protocol.ChatReply, 8)
	readErrCh := make(chan error, 1)
	go readLoop(conn, replies, readErrCh, out, cfg.verbose)

	results := make([]turnResult, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		requestID := fmt.Sprintf("perf-%d", i+1)
		started := time.Now()
		err := conn.WriteJSON(protocol.ChatMessage{
			Type:      protocol.TypeChatMessage,
			RequestID: requestID,
			SessionID: sessionID,
			Message:   text,
		})
		if err != nil {
			return fmt.Errorf("turn %d send: %w", i+1, err)
		}
		reply, err := awaitReply(replies, readErrCh, requestID, cfg.turnTimeout)
		if err != nil {
			return fmt.Errorf("turn %d await chat_reply: %w", i+1, err)
		}
		res := turnResult{
			RTT:              time.Since(started),
			Route:            reply.Route,
			Escalated:        reply.Escalated,
			ServerResponseMS: reply.ResponseTimeMS,
		}
		results = append(results, res)
		if cfg.verbose {
			fmt.Fprintf(out, "perfchat: turn %d/%d route=%s escalated=%t rtt=%s\n", i+1, cfg.turns, res.Route, res.Escalated, res.RTT.Round(time.Millisecond))
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summarize(results)); err != nil {
		return err
	}
	if !cfg.fetchStages {
		return nil
	}
	snap, err := fetchStages(ctx, &http.Client{Timeout: 10 * time.Second}, cfg.baseURL)
	if err != nil {
		return fmt.Errorf("fetch stage latency: %w", err)
	}
	return enc.Encode(snap)
}

func chatWSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/ws"
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, replies chan<- protocol.ChatReply, readErrCh chan<- error, out io.Writer, verbose bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeChatReply:
			var reply protocol.ChatReply
			if err := json.Unmarshal(data, &reply); err != nil {
				continue
			}
			replies <- reply
		case protocol.TypeErrorEvent:
			var ev protocol.ErrorEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			if verbose {
				fmt.Fprintf(out, "perfchat: error_event code=%s detail=%s\n", ev.Code, ev.Detail)
			}
			select {
			case readErrCh <- fmt.Errorf("server error %s: %s", ev.Code, ev.Detail):
			default:
			}
		}
	}
}

func awaitReply(replies <-chan protocol.ChatReply, readErrCh <-chan error, requestID string, timeout time.Duration) (protocol.ChatReply, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case reply := <-replies:
			if reply.RequestID != "" && reply.RequestID != requestID {
				continue
			}
			return reply, nil
		case err := <-readErrCh:
			return protocol.ChatReply{}, err
		case <-timer.C:
			return protocol.ChatReply{}, fmt.Errorf("timeout after %s", timeout)
		}
	}
}

func summarize(results []turnResult) summary {
	s := summary{Turns: len(results), Routes: map[string]int{}}
	if len(results) == 0 {
		return s
	}
	ms := make([]float64, 0, len(results))
	var total, serverTotal float64
	for _, r := range results {
		v := float64(r.RTT) / float64(time.Millisecond)
		ms = append(ms, v)
		total += v
		serverTotal += float64(r.ServerResponseMS)
		s.Routes[r.Route]++
		if r.Escalated {
			s.Escalations++
		}
	}
	sort.Float64s(ms)
	s.AvgMS = round2(total / float64(len(ms)))
	s.P50MS = round2(percentile(ms, 0.50))
	s.P95MS = round2(percentile(ms, 0.95))
	s.MaxMS = round2(ms[len(ms)-1])
	s.ServerAvgMS = round2(serverTotal / float64(len(results)))
	return s
}

// percentile uses nearest rank over sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func fetchStages(ctx context.Context, client *http.Client, baseURL string) (observability.StageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/perf/latency", nil)
	if err != nil {
		return observability.StageSnapshot{}, err
	}
	res, err := client.Do(req)
	if err != nil {
		return observability.StageSnapshot{}, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return observability.StageSnapshot{}, err
	}
	if res.StatusCode != http.StatusOK {
		return observability.StageSnapshot{}, fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var snap observability.StageSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return observability.StageSnapshot{}, err
	}
	return snap, nil
}
