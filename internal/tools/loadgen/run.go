package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
	CacheHits     int64
}

type request struct {
	method string
	path   string
	body   any
	auth   bool
}

type counters struct {
	total, failures, s2xx, s4xx, s5xx, hits atomic.Int64
}

func (c *counters) result() Result {
	return Result{
		TotalRequests: c.total.Load(),
		Failures:      c.failures.Load(),
		Status2xx:     c.s2xx.Load(),
		Status4xx:     c.s4xx.Load(),
		Status5xx:     c.s5xx.Load(),
		CacheHits:     c.hits.Load(),
	}
}

// Run signs up a throwaway user, creates a project to aim task traffic at,
// then replays the profile's request mix at cfg.RPS until cfg.Duration ends.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	if !knownProfile(cfg.Profile) {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1|1))
	token, projectID, err := bootstrap(ctx, cfg, rng)
	if err != nil {
		return Result{}, err
	}
	requests := requestsForProfile(cfg.Profile, projectID, rng)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var c counters
	jobs := make(chan request, cfg.Concurrency*2)
	g := new(errgroup.Group)
	for range cfg.Concurrency {
		g.Go(func() error {
			for job := range jobs {
				c.observe(send(ctx, cfg, token, job))
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			_ = g.Wait()
			return c.result(), nil
		case <-ticker.C:
			jobs <- requests[i%len(requests)]
		}
	}
}

func (c *counters) observe(resp *http.Response, err error) {
	if err != nil {
		c.failures.Add(1)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	c.total.Add(1)
	if resp.Header.Get("X-Cache") == "HIT" {
		c.hits.Add(1)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.s2xx.Add(1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.s4xx.Add(1)
	case resp.StatusCode >= 500:
		c.s5xx.Add(1)
	}
}

func send(ctx context.Context, cfg Config, token string, r request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, cfg.BaseURL+r.path, body)
	if err != nil {
		return nil, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return cfg.Client.Do(req)
}

func bootstrap(ctx context.Context, cfg Config, rng *rand.Rand) (token, projectID string, err error) {
	suffix := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rng.IntN(1_000_000))
	email := "loadgen-" + suffix + "@example.com"
	creds := map[string]string{
		"username":         "loadgen",
		"email":            email,
		"password":         "loadgen-pass",
		"confirm_password": "loadgen-pass",
	}
	if _, err := call(ctx, cfg, "", request{method: http.MethodPost, path: "/api/v1/auth/register", body: creds}, http.StatusCreated, nil); err != nil {
		return "", "", fmt.Errorf("register: %w", err)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if _, err := call(ctx, cfg, "", request{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   map[string]string{"email": email, "password": "loadgen-pass"},
	}, http.StatusOK, &login); err != nil {
		return "", "", fmt.Errorf("login: %w", err)
	}
	var project struct {
		ID string `json:"id"`
	}
	if _, err := call(ctx, cfg, login.AccessToken, request{
		method: http.MethodPost,
		path:   "/api/v1/project",
		body:   map[string]string{"name": "loadgen " + suffix},
		auth:   true,
	}, http.StatusCreated, &project); err != nil {
		return "", "", fmt.Errorf("create project: %w", err)
	}
	return login.AccessToken, project.ID, nil
}

func call(ctx context.Context, cfg Config, token string, r request, want int, dst any) (*http.Response, error) {
	resp, err := send(ctx, cfg, token, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return resp, fmt.Errorf("%s %s: status %d", r.method, r.path, resp.StatusCode)
	}
	if dst == nil {
		return resp, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp, err
	}
	return resp, json.Unmarshal(env.Data, dst)
}

func knownProfile(profile string) bool {
	switch strings.ToLower(profile) {
	case "", "mixed", "read-heavy", "error-heavy":
		return true
	}
	return false
}

// requestsForProfile builds a fixed request rotation. List queries repeat with
// shuffled parameter order so a warm cache shows up as X-Cache hits.
func requestsForProfile(profile, projectID string, rng *rand.Rand) []request {
	project := "/api/v1/project/" + projectID
	lists := []request{
		{method: http.MethodGet, path: "/api/v1/project?" + shuffledQuery(rng, url.Values{"sort_by": {"name"}, "order": {"asc"}}), auth: true},
		{method: http.MethodGet, path: "/api/v1/project?" + shuffledQuery(rng, url.Values{"order": {"asc"}, "sort_by": {"name"}}), auth: true},
		{method: http.MethodGet, path: project + "/task?" + shuffledQuery(rng, url.Values{"page": {"1"}, "per_page": {"5"}, "sort_by": {"created"}}), auth: true},
	}
	errs := []request{
		{method: http.MethodGet, path: "/api/v1/project"},
		{method: http.MethodGet, path: "/api/v1/project/00000000-0000-7000-8000-000000000000", auth: true},
		{method: http.MethodGet, path: "/api/v1/project?sort_by=bogus", auth: true},
	}
	writes := []request{
		{method: http.MethodPost, path: project + "/task", body: map[string]string{
			"title": "loadgen task", "name": "generated", "expiry": "2030-01-01 00:00:00",
		}, auth: true},
		{method: http.MethodGet, path: project, auth: true},
	}

	switch strings.ToLower(profile) {
	case "read-heavy":
		return append(lists, lists...)
	case "error-heavy":
		return append(errs, lists[0])
	default:
		out := append([]request{}, lists...)
		out = append(out, writes...)
		return append(out, errs[0])
	}
}

func shuffledQuery(rng *rand.Rand, v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v.Get(k)))
	}
	return strings.Join(parts, "&")
}
