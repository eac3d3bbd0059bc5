package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
	"github.com/katastar-hr/katastar/internal/core/ports"
)

// The public endpoints sit behind a browser-oriented gateway; requests
// carry the same headers a browser session would.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15"

// errStatusNotFound signals a 404 to the per-endpoint mapping.
var errStatusNotFound = errors.New("upstream 404")

// Client talks to the registry's public JSON endpoints. All requests share
// one rate limiter, 429 responses back off exponentially (2^n seconds) and
// 5xx more gently (1.5^n) before the error kinds rate_limit and
// server_error surface. Network failures are not retried.
type Client struct {
	http       *http.Client
	baseURL    string
	publicBase string
	limiter    *rate.Limiter
	maxRetries int

	// backoffUnit scales retry sleeps; tests shrink it.
	backoffUnit time.Duration
}

var _ ports.RegistryAPI = (*Client)(nil)

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:     strings.TrimRight(cfg.OSSBaseURL, "/"),
		publicBase:  strings.TrimRight(cfg.OSSPublicBaseURL, "/"),
		limiter:     rate.NewLimiter(rate.Every(cfg.RateLimitEvery), 1),
		maxRetries:  cfg.MaxRetries,
		backoffUnit: time.Second,
	}
}

// getJSON runs one rate-limited GET with the retry policy and returns the
// raw body. 404 comes back as errStatusNotFound for the caller to translate.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, domain.WrapError(domain.ErrTimeout, map[string]string{"endpoint": endpoint}, err)
			}
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, classifyTransportError(endpoint, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt < c.maxRetries {
				if err := sleepCtx(ctx, c.backoff(2.0, attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, domain.NewError(domain.ErrRateLimit, map[string]string{
				"endpoint":    endpoint,
				"max_retries": strconv.Itoa(c.maxRetries),
			})

		case resp.StatusCode >= 500:
			if attempt < c.maxRetries {
				if err := sleepCtx(ctx, c.backoff(1.5, attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, domain.NewError(domain.ErrServer, map[string]string{
				"endpoint":    endpoint,
				"status_code": strconv.Itoa(resp.StatusCode),
				"max_retries": strconv.Itoa(c.maxRetries),
			})

		case resp.StatusCode == http.StatusNotFound:
			return nil, errStatusNotFound

		case resp.StatusCode != http.StatusOK:
			return nil, domain.NewInvalidResponse(endpoint,
				fmt.Sprintf("unexpected status %d", resp.StatusCode))
		}

		if readErr != nil {
			return nil, domain.WrapError(domain.ErrConnection, map[string]string{"endpoint": endpoint}, readErr)
		}
		return body, nil
	}
}

func (c *Client) backoff(base float64, attempt int) time.Duration {
	return time.Duration(math.Pow(base, float64(attempt)) * float64(c.backoffUnit))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classifyTransportError separates timeouts from other network failures.
func classifyTransportError(endpoint string, err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &urlErr) && urlErr.Timeout()) {
		return domain.WrapError(domain.ErrTimeout, map[string]string{"endpoint": endpoint}, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.WrapError(domain.ErrConnection, map[string]string{"endpoint": endpoint}, err)
}

// Offices lists all cadastral offices. The list is country-wide and small.
func (c *Client) Offices(ctx context.Context) ([]domain.CadastralOffice, error) {
	endpoint := "/search-cad-parcels/offices"
	body, err := c.getJSON(ctx, endpoint, nil)
	if errors.Is(err, errStatusNotFound) {
		return nil, domain.NewInvalidResponse(endpoint, "unexpected status 404")
	}
	if err != nil {
		return nil, err
	}
	offices, err := domain.DecodeOffices(body, endpoint)
	if err != nil {
		return nil, err
	}
	if len(offices) == 0 {
		return nil, domain.NewInvalidResponse(endpoint, "empty_response")
	}
	return offices, nil
}

// SearchMunicipalities queries by free-text term and/or office and
// department filters. No hits is a valid result; callers decide whether
// emptiness is an error.
func (c *Client) SearchMunicipalities(ctx context.Context, search, officeID, departmentID string) ([]domain.MunicipalitySearchResult, error) {
	endpoint := "/search-cad-parcels/municipalities"
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	if officeID != "" {
		params.Set("officeId", officeID)
	}
	if departmentID != "" {
		params.Set("departmentId", departmentID)
	}

	body, err := c.getJSON(ctx, endpoint, params)
	if errors.Is(err, errStatusNotFound) {
		return nil, domain.NewInvalidResponse(endpoint, "unexpected status 404")
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeMunicipalities(body, endpoint)
}

// SearchParcelNumbers finds parcels whose number starts with search inside
// one municipality. "103" matches 103, 103/1, 1030 and so on.
func (c *Client) SearchParcelNumbers(ctx context.Context, search, municipalityRegNum string) ([]domain.ParcelSearchResult, error) {
	endpoint := "/search-cad-parcels/parcel-numbers"
	params := url.Values{}
	params.Set("search", search)
	params.Set("municipalityRegNum", municipalityRegNum)

	body, err := c.getJSON(ctx, endpoint, params)
	if errors.Is(err, errStatusNotFound) {
		return nil, domain.NewInvalidResponse(endpoint, "unexpected status 404")
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeParcelSearchResults(body, endpoint)
}

// ParcelInfo fetches the full record of one parcel by its internal ID.
func (c *Client) ParcelInfo(ctx context.Context, parcelID string) (*domain.ParcelInfo, error) {
	endpoint := "/cad/parcel-info"
	params := url.Values{}
	params.Set("parcelId", parcelID)

	body, err := c.getJSON(ctx, endpoint, params)
	if errors.Is(err, errStatusNotFound) {
		return nil, domain.NewError(domain.ErrParcelNotFound, map[string]string{
			"parcel_id": parcelID,
		})
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeParcelInfo(body, endpoint)
}

// LRUnit fetches one land registry unit with all three sheets. The
// endpoint answers with a list that typically holds a single element; an
// empty list means the unit does not exist.
func (c *Client) LRUnit(ctx context.Context, unitNumber string, mainBookID int, historical bool) (*domain.LandRegistryUnitDetailed, error) {
	endpoint := "/lr/lr-unit"
	params := url.Values{}
	params.Set("lrUnitNumber", unitNumber)
	params.Set("mainBookId", strconv.Itoa(mainBookID))
	params.Set("historicalOverview", strconv.FormatBool(historical))

	notFound := domain.NewError(domain.ErrLRUnitNotFound, map[string]string{
		"lr_unit_number": unitNumber,
		"main_book_id":   strconv.Itoa(mainBookID),
	})

	body, err := c.getJSON(ctx, endpoint, params)
	if errors.Is(err, errStatusNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}

	units, err := domain.DecodeLRUnitList(body, endpoint)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, notFound
	}
	return &units[0], nil
}

// MapURL builds the public interactive map link for a parcel.
func (c *Client) MapURL(parcelID int) string {
	return fmt.Sprintf("%s/map?cad_parcel_id=%d", c.publicBase, parcelID)
}
