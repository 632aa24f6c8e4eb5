package commands

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/runmode"
	"github.com/MrEthical07/goAuthen/session"
)

var (
	benchUsers       int
	benchConcurrency int
	benchOps         int
	benchRedis       string
	benchSessions    bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure login and revisit latency in process",
	Long: `bench seeds a generic driver with --users accounts and drives a run-mode
mux with --concurrency workers. The login phase posts credentials to a
protected run-mode; the revisit phase replays the resulting cookies.

With --sessions, state is kept in Redis (--redis, or an embedded
miniredis when unset) instead of the signed cookie.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchUsers, "users", 1000, "number of accounts to seed")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 64, "number of concurrent workers")
	benchCmd.Flags().IntVar(&benchOps, "ops", 20000, "requests per phase")
	benchCmd.Flags().StringVar(&benchRedis, "redis", "", "redis address for --sessions; miniredis when empty")
	benchCmd.Flags().BoolVar(&benchSessions, "sessions", false, "keep state in redis sessions")
}

type benchAccount struct {
	name     string
	password string
	mu       sync.Mutex
	cookies  []*http.Cookie
}

func runBench(cmd *cobra.Command, _ []string) error {
	if benchUsers <= 0 || benchConcurrency <= 0 || benchOps <= 0 {
		return fmt.Errorf("users, concurrency, and ops must be > 0")
	}
	out := cmd.OutOrStdout()

	accounts := make([]*benchAccount, benchUsers)
	users := make(map[string]any, benchUsers)
	for i := range accounts {
		a := &benchAccount{name: fmt.Sprintf("user%d", i), password: fmt.Sprintf("pw-%d", i)}
		accounts[i] = a
		users[a.name] = a.password
	}

	engine, err := goAuthen.New().
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithApp("bench", "DRIVER", []any{"generic", users}).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []runmode.Option
	if benchSessions {
		client, cleanup, err := benchRedisClient(out)
		if err != nil {
			return err
		}
		defer cleanup()
		st := session.NewStore(client, "bench", time.Hour, true, false, 0)
		opts = append(opts, runmode.WithSessions(session.NewManager(st, session.CookieConfig{})))
	}

	mux := runmode.NewMux(engine, "bench", opts...)
	mux.HandleProtected("private", func(w http.ResponseWriter, r *http.Request) {
		c, _ := goAuthen.ControllerFromContext(r.Context())
		fmt.Fprintf(w, "private for %s", c.Username())
	})

	loginStats := runBenchPhase(benchOps, benchConcurrency, func(r *rand.Rand) bool {
		a := accounts[r.Intn(len(accounts))]
		form := url.Values{"authen_username": {a.name}, "authen_password": {a.password}}
		req := httptest.NewRequest(http.MethodPost, "/?rm=private", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if !strings.Contains(rec.Body.String(), "private for "+a.name) {
			return false
		}
		a.mu.Lock()
		a.cookies = rec.Result().Cookies()
		a.mu.Unlock()
		return true
	})

	revisitStats := runBenchPhase(benchOps, benchConcurrency, func(r *rand.Rand) bool {
		a := accounts[r.Intn(len(accounts))]
		a.mu.Lock()
		cookies := a.cookies
		a.mu.Unlock()
		if cookies == nil {
			return false
		}
		req := httptest.NewRequest(http.MethodGet, "/?rm=private", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return strings.Contains(rec.Body.String(), "private for "+a.name)
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "login", loginStats)
	printStats(out, "revisit", revisitStats)
	return nil
}

func benchRedisClient(out io.Writer) (redis.UniversalClient, func(), error) {
	if benchRedis != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{benchRedis}})
		fmt.Fprintf(out, "using redis at %s\n", benchRedis)
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runBenchPhase runs op ops times across concurrency workers.
func runBenchPhase(ops, concurrency int, op func(r *rand.Rand) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
