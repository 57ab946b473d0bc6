// Package nominatim 通过 OpenStreetMap Nominatim 为场馆做地理编码。
// 请求之间保持礼貌间隔，限流/网络错误按指数退避重试，同一检索词的结果在内存中缓存。
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"LA28Sync/internal/config"
	"LA28Sync/internal/interfaces"
	"LA28Sync/internal/model"
	"LA28Sync/internal/utils/httpclient"

	"github.com/golang/geo/s2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const earthRadiusKM = 6371.0088

// 检索词已包含城市信息时不再追加默认上下文
var cityKeywords = []string{
	", ca", "california", "pasadena", "carson", "inglewood", "long beach", "san clemente",
	"okc", "oklahoma", "riversport", "softball hall of fame",
}

// Place Nominatim jsonv2 的一条候选
type Place struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Class       string            `json:"class"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Importance  float64           `json:"importance"`
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	Address     map[string]string `json:"address"`
}

// class 字段在 jsonv2 中叫 category
func (p Place) class() string {
	if p.Class != "" {
		return strings.ToLower(p.Class)
	}
	return strings.ToLower(p.Category)
}

func (p Place) coords() (float64, float64) {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)
	return lat, lon
}

// Client Nominatim 客户端
type Client struct {
	cfg        *config.GeocodeConfig
	httpClient *http.Client
	cache      *cache.Cache
	logger     *logrus.Logger

	backoffBase time.Duration // 退避基数，第 n 次重试等待 base*2^n + 抖动

	mu          sync.Mutex
	lastRequest time.Time
}

var _ interfaces.Geocoder = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg *config.GeocodeConfig, logger *logrus.Logger) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		cfg:         cfg,
		httpClient:  httpclient.NewHTTPClient(cfg.HTTPOptions(), logger),
		cache:       cache.New(ttl, ttl*2),
		logger:      logger,
		backoffBase: time.Second,
	}
}

// HTTPClient 底层客户端（测试中挂载 httpmock）
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// BuildQuery 检索词未包含城市时追加默认上下文
func (c *Client) BuildQuery(lookup string) string {
	lower := strings.ToLower(lookup)
	for _, k := range cityKeywords {
		if strings.Contains(lower, k) {
			return lookup
		}
	}
	if c.cfg.DefaultContext == "" {
		return lookup
	}
	return lookup + ", " + c.cfg.DefaultContext
}

// Search 检索候选，按 (query, limit) 缓存
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	limit := c.cfg.ResultLimit
	if limit <= 0 {
		limit = 5
	}
	key := fmt.Sprintf("search:%s|%d", query, limit)
	if cached, found := c.cache.Get(key); found {
		if places, ok := cached.([]Place); ok {
			c.logger.WithField("query", query).Debug("命中地理编码缓存")
			return places, nil
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}

	var places []Place
	if err := c.getWithRetry(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	c.cache.Set(key, places, cache.DefaultExpiration)
	return places, nil
}

// Geocode 检索一个场馆并给出状态：
// 无检索词 → unlocatable；无候选 → not_found；
// 前两名 importance 接近、国家不符、坐标为 (0,0) 或距离所有赛区中心过远 → needs_review。
func (c *Client) Geocode(ctx context.Context, hint config.VenueHint) (*model.GeocodeResult, error) {
	res := &model.GeocodeResult{Name: hint.Name}
	if strings.TrimSpace(hint.Query) == "" {
		res.Status = model.GeoStatusUnlocatable
		return res, nil
	}

	query := c.BuildQuery(hint.Query)
	places, err := c.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("地理编码%s失败: %w", hint.Name, err)
	}
	res.Debug = &model.GeocodeDebug{Query: query, Candidates: len(places)}

	best, ok := ChooseBest(places)
	if !ok {
		res.Status = model.GeoStatusNotFound
		return res, nil
	}

	lat, lng := best.coords()
	address := best.DisplayName
	res.Address = &address
	res.LatLng = model.LatLng{Lat: &lat, Lng: &lng}
	res.Debug.Picked = best.DisplayName
	res.Status = model.GeoStatusOK

	if dist, ok := c.nearestRegionKM(lat, lng); ok {
		res.Debug.DistanceKM = &dist
		if c.cfg.ReviewRadiusKM > 0 && dist > c.cfg.ReviewRadiusKM {
			res.Status = model.GeoStatusNeedsReview
		}
	}
	if Ambiguous(places) || c.wrongCountry(best) || (lat == 0 && lng == 0) {
		res.Status = model.GeoStatusNeedsReview
	}
	return res, nil
}

// ChooseBest 按 importance + 类别加权选出最佳候选
func ChooseBest(places []Place) (Place, bool) {
	if len(places) == 0 {
		return Place{}, false
	}
	best, bestScore := places[0], Score(places[0])
	for _, p := range places[1:] {
		if s := Score(p); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best, true
}

// Score 候选得分：POI 类别加分，行政边界/地名减分，有道路、门牌、场馆类型再加分
func Score(p Place) float64 {
	score := p.Importance
	switch p.class() {
	case "amenity", "tourism", "leisure", "building", "sport":
		score += 0.15
	case "boundary", "place":
		score -= 0.10
	}
	if p.Address["road"] != "" || p.Address["pedestrian"] != "" || p.Address["footway"] != "" {
		score += 0.08
	}
	if p.Address["house_number"] != "" {
		score += 0.06
	}
	typ := strings.ToLower(p.Type)
	for _, k := range []string{"stadium", "arena", "sports_centre", "pitch"} {
		if strings.Contains(typ, k) {
			score += 0.05
			break
		}
	}
	return score
}

// Ambiguous 接口返回的前两名 importance 相差不足 0.02
func Ambiguous(places []Place) bool {
	if len(places) < 2 {
		return false
	}
	return math.Abs(places[0].Importance-places[1].Importance) < 0.02
}

func (c *Client) wrongCountry(p Place) bool {
	cc := strings.ToLower(p.Address["country_code"])
	want := strings.ToLower(c.cfg.CountryCode)
	return cc != "" && want != "" && cc != want
}

// nearestRegionKM 到最近赛区中心的大圆距离
func (c *Client) nearestRegionKM(lat, lng float64) (float64, bool) {
	if len(c.cfg.Regions) == 0 {
		return 0, false
	}
	point := s2.LatLngFromDegrees(lat, lng)
	nearest := math.Inf(1)
	for _, r := range c.cfg.Regions {
		center := s2.LatLngFromDegrees(r.Lat, r.Lng)
		km := point.Distance(center).Radians() * earthRadiusKM
		if km < nearest {
			nearest = km
		}
	}
	return nearest, true
}

// getWithRetry 403/429/503 优先按 Retry-After 等待，其余错误按指数退避；超过重试次数返回最后一次错误
func (c *Client) getWithRetry(ctx context.Context, rawURL string, out interface{}) error {
	retries := c.cfg.RetryCount
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := c.politeWait(ctx); err != nil {
			return err
		}

		wait, err := c.doGet(ctx, rawURL, out, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == retries-1 {
			break
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("Nominatim请求失败，退避后重试")
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("Nominatim请求重试%d次后仍失败: %w", retries, lastErr)
}

// doGet 发起一次请求；失败时返回建议的等待时间
func (c *Client) doGet(ctx context.Context, rawURL string, out interface{}, attempt int) (time.Duration, error) {
	backoff := c.backoff(attempt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	if ua := c.userAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backoff, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		wait := backoff
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.ParseFloat(ra, 64); perr == nil && secs >= 0 {
				wait = time.Duration(secs * float64(time.Second))
			}
		}
		return wait, fmt.Errorf("被限流，状态码%d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return backoff, fmt.Errorf("状态码%d: %s", resp.StatusCode, string(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff, fmt.Errorf("响应不是合法JSON: %w", err)
	}
	return 0, nil
}

func (c *Client) userAgent() string {
	ua := c.cfg.UserAgent
	if ua != "" && c.cfg.Email != "" && !strings.Contains(ua, c.cfg.Email) {
		ua += " (" + c.cfg.Email + ")"
	}
	return ua
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase * time.Duration(1<<uint(attempt))
	if c.backoffBase > 0 {
		d += time.Duration(rand.Int63n(int64(c.backoffBase)))
	}
	return d
}

// politeWait 保证两次网络请求之间至少间隔 delay_ms
func (c *Client) politeWait(ctx context.Context) error {
	delay := time.Duration(c.cfg.DelayMS) * time.Millisecond
	c.mu.Lock()
	wait := time.Until(c.lastRequest.Add(delay))
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = time.Now().Add(wait)
	c.mu.Unlock()
	return sleepCtx(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
