// README: Bench cases: environment, QR activation flow, tracking and throughput checks against a running API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusPending = "PENDING"
	StatusSkip    = "SKIP"
)

// Pickup and dropoff of seeded orders.
var (
	benchPickup  = [2]float64{25.033, 121.565}
	benchDropoff = [2]float64{25.0478, 121.5318}
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// Filled in by earlier cases and read by later ones.
	orderID string
	qr      string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

var errNoOrder = errors.New("no seeded order")

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: StatusFail, Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: StatusFail, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: tablesExist},

		httpCase("API: health", http.MethodGet, "/health", "", nil, []int{200}),
		httpCase("API: metrics", http.MethodGet, "/metrics", "", nil, []int{200}),
		httpCase("API: missing token -> 401", http.MethodGet, "/api/orders/"+uuid.NewString(), "", nil, []int{401}),
		httpCase("API: unknown order -> 404", http.MethodGet, "/api/orders/"+uuid.NewString(), r.cfg.DispatcherToken, nil, []int{404}),

		{Name: "Seed: assigned order", Run: seedOrder},
		{Name: "QR: generate for order", Run: generateQR},
		{Name: "QR: validate generated code", Run: func(ctx context.Context, r *Runner) Result {
			return validateRaw(ctx, r, r.qr, true)
		}},
		{Name: "QR: tampered code rejected", Run: func(ctx context.Context, r *Runner) Result {
			if r.qr == "" {
				return Result{Status: StatusSkip, Note: "no generated code"}
			}
			return validateRaw(ctx, r, tamper(r.qr), false)
		}},

		{Name: "Concurrency: same code scanned in parallel", Run: concurrentScan},

		{Name: "Tracking: invalid coordinate -> 400", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: StatusSkip, Note: errNoOrder.Error()}
			}
			return r.expect(ctx, http.MethodPut, "/api/trips/"+r.orderID+"/location", r.cfg.DriverToken,
				map[string]any{"lat": 123.0, "lng": 456.0}, []int{400})
		}},
		{Name: "Perf: location update throughput", Run: locationLoad},
		{Name: "Tracking: progress readable", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: StatusSkip, Note: errNoOrder.Error()}
			}
			return r.expect(ctx, http.MethodGet, "/api/trips/"+r.orderID+"/progress", r.cfg.DispatcherToken, nil, []int{200})
		}},
		{Name: "Tracking: progress cached in Redis", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil || r.orderID == "" {
				return Result{Status: StatusSkip, Note: "redis or order missing"}
			}
			n, err := r.redis.Exists(ctx, "tracking:trip:"+r.orderID+":progress").Result()
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if n == 0 {
				return Result{Status: StatusFail, Note: "progress key missing"}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Tracking: snapshots persisted", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil || r.orderID == "" {
				return Result{Status: StatusSkip, Note: "db or order missing"}
			}
			var n int
			if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM location_snapshots WHERE trip_id = $1`, r.orderID).Scan(&n); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if n == 0 {
				return Result{Status: StatusFail, Note: "no snapshots"}
			}
			return Result{Status: StatusPass, Note: fmt.Sprintf("rows=%d", n)}
		}},
		{Name: "Order: cancel ends tracking", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: StatusSkip, Note: errNoOrder.Error()}
			}
			res := r.expect(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/status", r.cfg.DispatcherToken,
				map[string]string{"to": "cancelled"}, []int{200})
			if res.Status != StatusPass {
				return res
			}
			return r.expect(ctx, http.MethodPut, "/api/trips/"+r.orderID+"/location", r.cfg.DriverToken,
				map[string]any{"lat": benchDropoff[0], "lng": benchDropoff[1]}, []int{404})
		}},
	}
}

// do sends one JSON request and returns status, body and latency.
func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, time.Since(start), err
}

func (r *Runner) expect(ctx context.Context, method, path, token string, body any, okStatuses []int) Result {
	status, _, latency, err := r.do(ctx, method, path, token, body)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	note := fmt.Sprintf("status=%d", status)
	switch {
	case contains(okStatuses, status):
		return Result{Status: StatusPass, Latency: latency, Note: note}
	case status == http.StatusNotImplemented:
		return Result{Status: StatusPending, Latency: latency, Note: note}
	}
	return Result{Status: StatusFail, Latency: latency, Note: note}
}

func httpCase(name, method, path, token string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, method, path, token, body, okStatuses)
		},
	}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: StatusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
	}
	return Result{Status: StatusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: StatusPass}
}

// seedOrder inserts a fresh assigned order so the activation flow can run
// against a clean state on every invocation.
func seedOrder(ctx context.Context, r *Runner) Result {
	if r.db == nil || r.cfg.TenantID == "" {
		return Result{Status: StatusSkip, Note: "needs -dsn and -tenant"}
	}
	id := uuid.NewString()
	_, err := r.db.Exec(ctx, `
        INSERT INTO orders (id, tenant_id, order_number, status, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng)
        VALUES ($1, $2, $3, 'assigned', $4, $5, $6, $7)`,
		id, r.cfg.TenantID, "BENCH-"+id[:8], benchPickup[0], benchPickup[1], benchDropoff[0], benchDropoff[1],
	)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	r.orderID = id
	return Result{Status: StatusPass, Note: "order=" + id}
}

func generateQR(ctx context.Context, r *Runner) Result {
	if r.orderID == "" {
		return Result{Status: StatusSkip, Note: errNoOrder.Error()}
	}
	status, body, latency, err := r.do(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/qr", r.cfg.DispatcherToken, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != http.StatusOK {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	var resp struct {
		QR string `json:"qr"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.QR == "" {
		return Result{Status: StatusFail, Latency: latency, Note: "response without qr"}
	}
	r.qr = resp.QR
	return Result{Status: StatusPass, Latency: latency}
}

func validateRaw(ctx context.Context, r *Runner, raw string, wantValid bool) Result {
	if raw == "" {
		return Result{Status: StatusSkip, Note: "no generated code"}
	}
	status, body, latency, err := r.do(ctx, http.MethodPost, "/api/qr/validate", r.cfg.DriverToken, map[string]string{"raw": raw})
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	var resp struct {
		IsValid bool   `json:"is_valid"`
		Reason  string `json:"reason"`
	}
	if status != http.StatusOK || json.Unmarshal(body, &resp) != nil {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	if resp.IsValid != wantValid {
		return Result{Status: StatusFail, Latency: latency, Note: "reason=" + resp.Reason}
	}
	return Result{Status: StatusPass, Latency: latency, Note: "reason=" + resp.Reason}
}

// tamper flips one character in the middle of the encoded payload.
func tamper(raw string) string {
	b := []byte(raw)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

// concurrentScan fires the same code from several goroutines; the order may
// be activated exactly once.
func concurrentScan(ctx context.Context, r *Runner) Result {
	if r.qr == "" {
		return Result{Status: StatusSkip, Note: "no generated code"}
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		succ    int
		refused int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, _, err := r.do(ctx, http.MethodPost, "/api/scan", r.cfg.DriverToken, map[string]string{"raw": r.qr})
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case status >= 200 && status < 300:
				succ++
			case status == http.StatusConflict:
				refused++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("activated=%d refused=%d", succ, refused)
	if succ == 1 {
		return Result{Status: StatusPass, Note: note}
	}
	return Result{Status: StatusFail, Note: note}
}

// locationLoad streams samples along the seeded order's straight line.
// Concurrent senders race on timestamps, so 409s are expected and counted
// separately from errors.
func locationLoad(ctx context.Context, r *Runner) Result {
	if r.orderID == "" {
		return Result{Status: StatusSkip, Note: errNoOrder.Error()}
	}
	path := "/api/trips/" + r.orderID + "/location"
	end := time.Now().Add(r.cfg.Duration)
	base := time.Now().UnixMilli()
	var seq, accepted, outOfOrder, errCount atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				n := seq.Add(1)
				f := float64(n%1000) / 1000
				body := map[string]any{
					"lat":          benchPickup[0] + (benchDropoff[0]-benchPickup[0])*f,
					"lng":          benchPickup[1] + (benchDropoff[1]-benchPickup[1])*f,
					"timestamp_ms": base + n*100,
				}
				status, _, _, err := r.do(ctx, http.MethodPut, path, r.cfg.DriverToken, body)
				switch {
				case err != nil:
					errCount.Add(1)
				case status == http.StatusOK:
					accepted.Add(1)
				case status == http.StatusConflict:
					outOfOrder.Add(1)
				default:
					errCount.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if accepted.Load() == 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("no samples accepted, errors=%d", errCount.Load())}
	}
	rps := float64(accepted.Load()+outOfOrder.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f accepted=%d out_of_order=%d errors=%d",
		rps, accepted.Load(), outOfOrder.Load(), errCount.Load())}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
