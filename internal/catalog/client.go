package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"heroindex/internal"
	"heroindex/internal/config"
	"heroindex/internal/util"
)

const maxAttempts = 5

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.HeroAPITimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.HeroAPIRateLimitRPS),
	}
}

// GetAllHeroes fetches the whole catalog. Records without an id or a name
// are skipped.
func (c *Client) GetAllHeroes(ctx context.Context) ([]internal.Hero, error) {
	body, err := c.fetchJSON(ctx, "all.json")
	if err != nil {
		return nil, err
	}

	var raws []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make([]internal.Hero, 0, len(raws))
	for _, raw := range raws {
		hero, err := toHeroRecord(raw)
		if err != nil {
			continue
		}
		out = append(out, hero)
	}
	return out, nil
}

func (c *Client) GetHero(ctx context.Context, id int) (internal.Hero, error) {
	body, err := c.fetchJSON(ctx, "id/"+strconv.Itoa(id)+".json")
	if err != nil {
		return internal.Hero{}, err
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return internal.Hero{}, fmt.Errorf("decode hero %d: %w", id, err)
	}
	return toHeroRecord(raw)
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.HeroAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("hero api status %d", resp.StatusCode)
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("hero api error: status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("hero api request failed")
	}
	return nil, lastErr
}

func backoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func toHeroRecord(raw map[string]any) (internal.Hero, error) {
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.Hero{}, errors.New("empty name")
	}

	id, ok := util.ParseStat(raw["id"])
	if !ok {
		return internal.Hero{}, errors.New("missing id")
	}

	rawJSON, _ := json.Marshal(raw)
	hero := internal.Hero{
		APIID:   id,
		Name:    name,
		RawJSON: string(rawJSON),
	}
	hero.Slug = toString(raw["slug"])
	hero.PowerStats = toStats(raw["powerstats"])

	bio, _ := raw["biography"].(map[string]any)
	hero.FullName = toString(bio["fullName"])
	hero.Publisher = toString(bio["publisher"])
	hero.Alignment = toString(bio["alignment"])

	conn, _ := raw["connections"].(map[string]any)
	hero.RawAffiliations = toAffiliations(conn["groupAffiliation"])
	if teams := toAffiliations(raw["teams"]); len(teams) > 0 {
		hero.RawAffiliations = append(hero.RawAffiliations, teams...)
	}

	images, _ := raw["images"].(map[string]any)
	hero.ImageURL = toString(images["md"])

	return hero, nil
}

// toString trims v and maps the catalog's "-" and "null" placeholders to "".
func toString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "-" || strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func toStats(v any) map[string]int {
	out := map[string]int{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, raw := range m {
		if stat, ok := util.ParseStat(raw); ok {
			out[strings.ToLower(k)] = stat
		}
	}
	return out
}

// toAffiliations accepts a single affiliation string or a list of them.
// Non-string list entries are dropped here; the canonicalizer also
// tolerates them.
func toAffiliations(v any) []string {
	switch t := v.(type) {
	case string:
		if s := toString(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
