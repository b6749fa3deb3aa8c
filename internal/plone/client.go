// Package plone is the HTTP adapter for the content API that owns rooms and
// bookings. Backend representation quirks stop here.
package plone

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roombook/internal/metrics"
	"roombook/internal/model"
)

const (
	roomType    = "conference_room"
	bookingType = "room_booking"

	roomsCachePrefix = "roombook:rooms:"
	maxPages      = 20
)

// Client calls the content API on behalf of one bearer token.
type Client struct {
	baseURL     string
	bookingsDir string
	token       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL (e.g. https://host/++api++).
// Bookings are created in bookingsDir, relative to baseURL.
func NewClient(baseURL, bookingsDir string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if bookingsDir == "" {
		bookingsDir = "conference-rooms/bookings"
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "plone").Logger()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bookingsDir: strings.Trim(bookingsDir, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		logger:      l,
	}
}

// UseRedisCache configures optional Redis caching of the room list.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit caps outgoing requests at rps with the given burst.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// WithToken returns a copy of the client that authenticates with token.
// The copy shares the HTTP client, limiter and cache.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// ListRooms returns all conference rooms.
func (c *Client) ListRooms(ctx context.Context) ([]model.Room, error) {
	var items []roomItem
	key := c.roomsCacheKey()
	if c.readCache(ctx, key, &items) {
		return roomsFromItems(items), nil
	}

	items, err := search[roomItem](ctx, c, "rooms", roomType, 100)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, items)
	return roomsFromItems(items), nil
}

// ListBookings returns every booking. Items that cannot be decoded are
// logged and skipped.
func (c *Client) ListBookings(ctx context.Context) ([]model.Booking, error) {
	items, err := search[bookingItem](ctx, c, "bookings", bookingType, 1000)
	if err != nil {
		return nil, err
	}

	bookings := make([]model.Booking, 0, len(items))
	for _, it := range items {
		b, err := it.toModel()
		if err != nil {
			c.logger.Warn().Err(err).Str("booking", it.ID).Msg("skipping booking")
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// NewBooking is the payload for CreateBooking.
type NewBooking struct {
	Title   string
	RoomID  string
	Start   time.Time
	End     time.Time
	Purpose string
}

// CreateBooking creates a booking and returns the stored object.
func (c *Client) CreateBooking(ctx context.Context, nb NewBooking) (*model.Booking, error) {
	body := createBookingRequest{
		Type:          bookingType,
		Title:         nb.Title,
		Room:          nb.RoomID,
		StartDatetime: FormatTimestamp(nb.Start),
		EndDatetime:   FormatTimestamp(nb.End),
		Purpose:       nb.Purpose,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, c.bookingsDir)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, "create_booking")
	if err != nil {
		return nil, err
	}

	var item bookingItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if item.Room == "" {
		item.Room = RoomRef(nb.RoomID)
	}
	if item.StartDatetime == "" {
		item.StartDatetime = body.StartDatetime
		item.EndDatetime = body.EndDatetime
	}
	b, err := item.toModel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &b, nil
}

// CancelBooking deletes a booking. bookingID may be the content URL or the
// short id.
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	endpoint := fmt.Sprintf("%s/@cancel-booking/%s", c.baseURL, url.PathEscape(shortID(bookingID)))
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}

	raw, err := c.do(req, "cancel_booking")
	if err == nil {
		return nil
	}
	var p statusPayload
	if json.Unmarshal(raw, &p) == nil && p.Success {
		return nil
	}
	return err
}

// MyBookings returns the caller's own bookings.
func (c *Client) MyBookings(ctx context.Context) ([]OwnBooking, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/@my-bookings", http.NoBody)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(req, "my_bookings")
	if err != nil {
		return nil, err
	}
	var wrap struct {
		Bookings []OwnBooking `json:"bookings"`
		Count    int          `json:"count"`
	}
	if err := json.Unmarshal(raw, &wrap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return wrap.Bookings, nil
}

// HealthCheck checks that the API answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return err
	}
	_, err = c.do(req, "health")
	return err
}

func search[T any](ctx context.Context, c *Client, name, portalType string, batch int) ([]T, error) {
	q := url.Values{}
	q.Set("portal_type", portalType)
	q.Set("fullobjects", "true")
	q.Set("b_size", fmt.Sprint(batch))
	endpoint := fmt.Sprintf("%s/@search?%s", c.baseURL, q.Encode())

	var all []T
	for page := 0; endpoint != "" && page < maxPages; page++ {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, err
		}
		raw, err := c.do(req, name)
		if err != nil {
			return nil, err
		}
		var resp searchResponse[T]
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		all = append(all, resp.Items...)

		endpoint = ""
		if resp.Batching != nil && resp.Batching.Next != "" {
			endpoint = resp.Batching.Next
		}
	}
	return all, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and returns the body. On non-2xx it returns the body together
// with an *APIError.
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(endpoint, "error", time.Since(started))
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	metrics.ObserveAPIRequest(endpoint, fmt.Sprint(resp.StatusCode), time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("request_id", req.Header.Get("X-Request-ID")).
			Str("message", apiErr.Message).
			Msg("api error")
		return raw, apiErr
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var p statusPayload
	if err := json.Unmarshal(raw, &p); err == nil {
		return p.text()
	}
	return strings.TrimSpace(string(raw))
}

// roomsCacheKey scopes the cached room list to the caller's token, since the
// search only returns rooms the token may see.
func (c *Client) roomsCacheKey() string {
	if c.token == "" {
		return roomsCachePrefix + "anonymous"
	}
	sum := sha256.Sum256([]byte(c.token))
	return roomsCachePrefix + hex.EncodeToString(sum[:8])
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func roomsFromItems(items []roomItem) []model.Room {
	rooms := make([]model.Room, 0, len(items))
	for _, it := range items {
		rooms = append(rooms, it.toModel())
	}
	return rooms
}
