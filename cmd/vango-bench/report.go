package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"time"
)

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	FirstPaint latencyInfo    `json:"first_paint_ms"`
	Complete   latencyInfo    `json:"complete_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Profile       string `json:"profile"`
	Clients       int    `json:"clients"`
	DurationMS    int64  `json:"duration_ms"`
	Cards         int    `json:"cards"`
	DelayMS       int64  `json:"delay_ms"`
	Transport     string `json:"transport"`
	Mode          string `json:"mode"`
	MaxProcs      int    `json:"max_procs"`
	MemLimitBytes int64  `json:"mem_limit_bytes"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	StreamsTotal       uint64  `json:"streams_total"`
	StreamsPerSec      float64 `json:"streams_per_sec"`
	FragmentsTotal     uint64  `json:"fragments_total"`
	FragmentsPerStream float64 `json:"fragments_per_stream"`
	AvgStreamBytes     float64 `json:"avg_stream_bytes"`
}

type gcInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	HeapLiveMB   float64 `json:"heap_live_mb"`
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
	PauseAvgMS   float64 `json:"pause_avg_ms"`
}

type errorInfo struct {
	TotalErrors     uint64 `json:"total_errors"`
	RequestFailures uint64 `json:"request_failures"`
	StatusErrors    uint64 `json:"status_errors"`
	ReadFailures    uint64 `json:"read_failures"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	samples []sample,
	counters *benchCounters,
	errors *benchErrors,
	before runtime.MemStats,
	after runtime.MemStats,
) benchReport {
	firstPaint := make([]time.Duration, len(samples))
	complete := make([]time.Duration, len(samples))
	for i, s := range samples {
		firstPaint[i] = s.firstPaint
		complete[i] = s.complete
	}

	streams := counters.streams.Load()
	fragments := counters.fragments.Load()
	elapsedSeconds := math.Max(0.001, elapsed.Seconds())

	perStream := func(v uint64) float64 {
		if streams == 0 {
			return 0
		}
		return float64(v) / float64(streams)
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Profile:       cfg.Profile,
			Clients:       cfg.Clients,
			DurationMS:    cfg.Duration.Milliseconds(),
			Cards:         cfg.Cards,
			DelayMS:       cfg.Delay.Milliseconds(),
			Transport:     cfg.Transport,
			Mode:          cfg.Mode,
			MaxProcs:      cfg.MaxProcs,
			MemLimitBytes: cfg.MemLimitBytes,
		},
		FirstPaint: latencies(firstPaint),
		Complete:   latencies(complete),
		Throughput: throughputInfo{
			StreamsTotal:       streams,
			StreamsPerSec:      float64(streams) / elapsedSeconds,
			FragmentsTotal:     fragments,
			FragmentsPerStream: perStream(fragments),
			AvgStreamBytes:     perStream(counters.bytes.Load()),
		},
		GC: gcInfo{
			AllocMB:      float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:   float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:        after.NumGC - before.NumGC,
			PauseTotalMS: ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			PauseAvgMS:   ms(avgPause(after, before)),
		},
		Errors: errorInfo{
			TotalErrors:     errors.totalErrors.Load(),
			RequestFailures: errors.requestFailures.Load(),
			StatusErrors:    errors.statusErrors.Load(),
			ReadFailures:    errors.readFailures.Load(),
		},
	}
}

// latencies sorts d in place and summarizes it.
func latencies(d []time.Duration) latencyInfo {
	if len(d) == 0 {
		return latencyInfo{}
	}
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	return latencyInfo{
		Min: ms(d[0]),
		P50: ms(percentile(d, 0.50)),
		P95: ms(percentile(d, 0.95)),
		P99: ms(percentile(d, 0.99)),
		Max: ms(d[len(d)-1]),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== vango-stream Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Page: %d cards, %d ms base delay\n", report.Workload.Cards, report.Workload.DelayMS)
	fmt.Fprintf(w, "Transport: %s (%s)\n", report.Workload.Transport, report.Workload.Mode)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total streams: %d\n", report.Throughput.StreamsTotal)
	fmt.Fprintf(w, "Throughput: %.1f streams/s\n", report.Throughput.StreamsPerSec)
	fmt.Fprintf(w, "Fragments: %.2f per stream, %.0f bytes per stream\n", report.Throughput.FragmentsPerStream, report.Throughput.AvgStreamBytes)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.Complete.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		writeLatency(w, "First paint (request -> first byte):", report.FirstPaint)
		writeLatency(w, "Complete (request -> end of stream):", report.Complete)
	}

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
}

func writeLatency(w io.Writer, title string, l latencyInfo) {
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  min: %.2f ms\n", l.Min)
	fmt.Fprintf(w, "  p50: %.2f ms\n", l.P50)
	fmt.Fprintf(w, "  p95: %.2f ms\n", l.P95)
	fmt.Fprintf(w, "  p99: %.2f ms\n", l.P99)
	fmt.Fprintf(w, "  max: %.2f ms\n", l.Max)
	fmt.Fprintln(w)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
