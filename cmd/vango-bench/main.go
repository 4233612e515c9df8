package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-stream/pkg/component"
	"github.com/vango-dev/vango-stream/pkg/stream"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	Cards         int
	Delay         time.Duration
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:     "fast",
		Clients:  20,
		Duration: 5 * time.Second,
		Cards:    5,
		Delay:    20 * time.Millisecond,
	},
	"standard": {
		Name:     "standard",
		Clients:  100,
		Duration: 20 * time.Second,
		Cards:    10,
		Delay:    50 * time.Millisecond,
	},
	"stress": {
		Name:          "stress",
		Clients:       300,
		Duration:      45 * time.Second,
		Cards:         20,
		Delay:         50 * time.Millisecond,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Clients       int
	Duration      time.Duration
	Cards         int
	Delay         time.Duration
	Transport     string
	Mode          string
	MaxProcs      int
	MemLimitBytes int64
	JSONOutput    string
}

type benchCounters struct {
	streams   atomic.Uint64
	fragments atomic.Uint64
	bytes     atomic.Uint64
}

type benchErrors struct {
	requestFailures atomic.Uint64
	statusErrors    atomic.Uint64
	readFailures    atomic.Uint64
	totalErrors     atomic.Uint64
}

// sample is the timing of one complete stream.
type sample struct {
	firstPaint time.Duration
	complete   time.Duration
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	httpServer := &http.Server{Handler: newBenchHandler(cfg)}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = httpServer.Shutdown(context.Background())
	}()

	report := run(context.Background(), cfg, ln.Addr().String())
	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

// newBenchHandler serves the bench page with logging off.
func newBenchHandler(cfg benchConfig) http.Handler {
	reg := component.NewRegistry()
	reg.MustRegister("bench", benchPage(cfg.Cards, cfg.Delay))

	hc := stream.DefaultHandlerConfig()
	hc.Registry = reg
	hc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	hc.Stream.Logger = hc.Logger
	hc.Renderer.Logger = hc.Logger
	hc.CheckOrigin = func(r *http.Request) bool { return true }
	return stream.NewHandler(hc)
}

// run drives cfg.Clients clients against addr for cfg.Duration.
func run(ctx context.Context, cfg benchConfig, addr string) benchReport {
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	target := "http://" + addr + "/render/bench?mode=" + cfg.Mode
	if cfg.Transport == "ws" {
		target = "ws://" + addr + "/ws/bench?mode=" + cfg.Mode
	}

	var (
		samplesMu sync.Mutex
		samples   []sample
		counters  benchCounters
		errCounts benchErrors
	)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				s, err := runStream(ctx, cfg.Transport, target, &counters, &errCounts)
				if err != nil {
					if ctx.Err() == nil {
						errCounts.totalErrors.Add(1)
					}
					continue
				}
				samplesMu.Lock()
				samples = append(samples, s)
				samplesMu.Unlock()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	return buildReport(cfg, elapsed, samples, &counters, &errCounts, before, after)
}

// runStream performs one render and times its first paint and completion.
func runStream(ctx context.Context, transport, target string, counters *benchCounters, errCounts *benchErrors) (sample, error) {
	if transport == "ws" {
		return runWebSocket(ctx, target, counters, errCounts)
	}
	return runHTTP(ctx, target, counters, errCounts)
}

var fragmentOpen = []byte("<" + component.FragmentTag)

func runHTTP(ctx context.Context, target string, counters *benchCounters, errCounts *benchErrors) (sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return sample{}, err
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		errCounts.requestFailures.Add(1)
		return sample{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		errCounts.statusErrors.Add(1)
		return sample{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var (
		s    sample
		body bytes.Buffer
		buf  = make([]byte, 32*1024)
	)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if s.firstPaint == 0 {
				s.firstPaint = time.Since(start)
			}
			body.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errCounts.readFailures.Add(1)
			return sample{}, err
		}
	}
	s.complete = time.Since(start)

	counters.streams.Add(1)
	counters.bytes.Add(uint64(body.Len()))
	counters.fragments.Add(uint64(bytes.Count(body.Bytes(), fragmentOpen)))
	return s, nil
}

func runWebSocket(ctx context.Context, target string, counters *benchCounters, errCounts *benchErrors) (sample, error) {
	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		errCounts.requestFailures.Add(1)
		return sample{}, err
	}
	defer conn.Close()

	var (
		s         sample
		total     int
		msgs      int
		fragments int
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			errCounts.readFailures.Add(1)
			return sample{}, err
		}
		if msgs == 0 {
			s.firstPaint = time.Since(start)
		}
		msgs++
		total += len(data)
		fragments += bytes.Count(data, fragmentOpen)
	}
	s.complete = time.Since(start)

	counters.streams.Add(1)
	counters.bytes.Add(uint64(total))
	counters.fragments.Add(uint64(fragments))
	return s, nil
}

func parseConfig(args []string) (benchConfig, error) {
	fs := flag.NewFlagSet("vango-bench", flag.ContinueOnError)
	profileFlag := fs.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := fs.Int("clients", -1, "number of concurrent clients")
	durationFlag := fs.String("duration", "", "benchmark duration, e.g. 30s")
	cardsFlag := fs.Int("cards", -1, "async cards rendered per page")
	delayFlag := fs.String("delay", "", "base load latency of each card, e.g. 50ms")
	transportFlag := fs.String("transport", "http", "transport: http|ws")
	modeFlag := fs.String("mode", "streaming", "render mode: streaming|static")
	maxProcsFlag := fs.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := fs.Int64("mem-limit-mib", -1, "GOMEMLIMIT in MiB (0 to leave unchanged)")
	jsonFlag := fs.String("json", "-", "JSON output path ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return benchConfig{}, err
	}

	p, ok := profiles[*profileFlag]
	if !ok {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		return benchConfig{}, fmt.Errorf("unknown profile %q (want %s)", *profileFlag, strings.Join(names, "|"))
	}

	cfg := benchConfig{
		Profile:       p.Name,
		Clients:       p.Clients,
		Duration:      p.Duration,
		Cards:         p.Cards,
		Delay:         p.Delay,
		Transport:     *transportFlag,
		Mode:          *modeFlag,
		MaxProcs:      p.MaxProcs,
		MemLimitBytes: p.MemLimitBytes,
		JSONOutput:    *jsonFlag,
	}
	if *clientsFlag >= 0 {
		cfg.Clients = *clientsFlag
	}
	if *cardsFlag >= 0 {
		cfg.Cards = *cardsFlag
	}
	if *maxProcsFlag >= 0 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag >= 0 {
		cfg.MemLimitBytes = *memLimitFlag * 1024 * 1024
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid duration: %w", err)
		}
		cfg.Duration = d
	}
	if *delayFlag != "" {
		d, err := time.ParseDuration(*delayFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid delay: %w", err)
		}
		cfg.Delay = d
	}

	if cfg.Clients < 1 {
		return benchConfig{}, errors.New("clients must be at least 1")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("duration must be positive")
	}
	switch cfg.Transport {
	case "http", "ws":
	default:
		return benchConfig{}, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if _, err := component.ParseMode(cfg.Mode); err != nil {
		return benchConfig{}, err
	}
	return cfg, nil
}
