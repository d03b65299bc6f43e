// Command loadtest drives a running searcher with a mixed query workload
// and reports latency and status-code distributions. It alternates keyword
// and pattern searches so both the cached and uncached paths get exercised.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"
)

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
}

// keywords and patterns are common terms in a public-domain book corpus, so
// most requests return results while a few exercise the zero-result path.
var keywords = []string{
	"whale", "sea", "captain", "love", "war", "death", "house",
	"night", "king", "heart", "ship", "island", "ghost", "garden",
	"winter", "zyzzyva",
}

var patterns = []string{
	"^wh", "ing$", "^sea", "ness$", "ould", "^un.*ed$", "ph", "^qq",
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the search service")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	flag.Parse()

	fmt.Println("=== Bibliograph Search Load Test ===")
	fmt.Printf("Target:      %s\n", opts.baseURL)
	fmt.Printf("Concurrency: %d\n", opts.concurrency)
	fmt.Printf("Duration:    %s\n", opts.duration)
	fmt.Printf("Queries:     %d keyword, %d pattern\n", len(keywords), len(patterns))
	fmt.Println()

	rep := run(opts)
	rep.print(opts.duration)
	if rep.total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// sample is one request outcome, sent from a worker to the collector.
type sample struct {
	elapsed time.Duration
	status  int
	failed  bool
}

// report accumulates samples on a single goroutine, so it needs no locks.
type report struct {
	success   int64
	failures  int64
	latencies []time.Duration
	byStatus  map[int]int64
}

func (r *report) add(s sample) {
	if s.failed || s.status < 200 || s.status >= 300 {
		r.failures++
	} else {
		r.success++
	}
	if !s.failed {
		r.latencies = append(r.latencies, s.elapsed)
		r.byStatus[s.status]++
	}
}

func (r *report) total() int64 {
	return r.success + r.failures
}

func run(opts options) *report {
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	samples := make(chan sample, opts.concurrency)
	var wg sync.WaitGroup
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			worker(ctx, client, opts, offset, samples)
		}(w)
	}
	go func() {
		wg.Wait()
		close(samples)
	}()

	fmt.Print("Running")
	go progressDots(ctx)

	rep := &report{byStatus: make(map[int]int64)}
	for s := range samples {
		rep.add(s)
	}
	fmt.Println(" done!")
	fmt.Println()
	return rep
}

// worker issues requests until the deadline, striding through the workload
// so concurrent workers do not replay the same query sequence.
func worker(ctx context.Context, client *http.Client, opts options, n int, out chan<- sample) {
	for ctx.Err() == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, nextTarget(opts.baseURL, n), nil)
		n += opts.concurrency
		if err != nil {
			out <- sample{failed: true}
			continue
		}

		start := time.Now()
		resp, err := client.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			out <- sample{elapsed: elapsed, failed: true}
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		out <- sample{elapsed: elapsed, status: resp.StatusCode}
	}
}

// nextTarget picks the n-th request. Every fourth is a pattern search; the
// rest are keyword lookups.
func nextTarget(base string, n int) string {
	if n%4 == 3 {
		p := patterns[(n/4)%len(patterns)]
		return fmt.Sprintf("%s/api/v1/search/pattern?p=%s&limit=10", base, url.QueryEscape(p))
	}
	return fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", base, url.QueryEscape(keywords[n%len(keywords)]))
}

func progressDots(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Print(".")
		}
	}
}

func (r *report) print(duration time.Duration) {
	total := r.total()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", r.success)
	fmt.Printf("Errors:          %d\n", r.failures)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(r.failures)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	if len(r.latencies) > 0 {
		slices.Sort(r.latencies)
		var sum time.Duration
		for _, l := range r.latencies {
			sum += l
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", r.latencies[0])
		fmt.Printf("Avg:    %s\n", sum/time.Duration(len(r.latencies)))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Printf("P%.0f:    %s\n", p, percentile(r.latencies, p))
		}
		fmt.Printf("Max:    %s\n", r.latencies[len(r.latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	for _, code := range slices.Sorted(maps.Keys(r.byStatus)) {
		fmt.Printf("  %d: %d\n", code, r.byStatus[code])
	}
}

// percentile is nearest-rank over an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
