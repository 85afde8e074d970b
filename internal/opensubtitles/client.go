package opensubtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.opensubtitles.com/api/v1"
	defaultUserAgent   = "dualsubs v1.0"
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 4096
)

// Config describes the OpenSubtitles client configuration.
type Config struct {
	APIKey     string
	UserAgent  string
	UserToken  string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the subset of the OpenSubtitles REST API needed to search for
// and download subtitle files.
type Client struct {
	apiKey    string
	userAgent string
	userToken string
	baseURL   *url.URL
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("opensubtitles: api key is required")
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("opensubtitles: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:    apiKey,
		userAgent: userAgent,
		userToken: strings.TrimSpace(cfg.UserToken),
		baseURL:   baseURL,
		http:      client,
	}, nil
}

// SearchRequest describes subtitle discovery filters.
type SearchRequest struct {
	IMDBID    string
	Languages []string
	Season    int
	Episode   int
}

// Subtitle is one search hit. Results keep the order the provider returned.
type Subtitle struct {
	ID              string
	FileID          int64
	Language        string
	Release         string
	FeatureTitle    string
	Downloads       int
	HearingImpaired bool
}

// SearchResponse bundles the subtitles returned by a query.
type SearchResponse struct {
	Subtitles []Subtitle
	Total     int
}

// DownloadResult captures a downloaded subtitle payload.
type DownloadResult struct {
	Data        []byte
	FileName    string
	Language    string
	DownloadURL string
	Cached      bool
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("opensubtitles: %s failed (%s)", e.Operation, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Search queries the subtitles endpoint.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if c == nil {
		return SearchResponse{}, errors.New("opensubtitles: client is nil")
	}
	imdb := SanitizeIMDBID(req.IMDBID)
	if imdb == "" {
		return SearchResponse{}, fmt.Errorf("opensubtitles: invalid imdb id %q", req.IMDBID)
	}
	endpoint := c.baseURL.JoinPath("subtitles")
	params := url.Values{}
	params.Set("imdb_id", imdb)
	if len(req.Languages) > 0 {
		params.Set("languages", strings.Join(req.Languages, ","))
	}
	if req.Season > 0 && req.Episode > 0 {
		params.Set("season_number", strconv.Itoa(req.Season))
		params.Set("episode_number", strconv.Itoa(req.Episode))
	}
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("opensubtitles: build search request: %w", err)
	}
	c.applyHeaders(httpReq)
	var payload searchResponse
	if err := c.doJSON(httpReq, "search", &payload); err != nil {
		return SearchResponse{}, err
	}

	subtitles := make([]Subtitle, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.Attributes.Language == "" {
			continue
		}
		fileID := entry.Attributes.PrimaryFileID()
		if fileID == 0 {
			continue
		}
		subtitles = append(subtitles, Subtitle{
			ID:              entry.ID,
			FileID:          fileID,
			Language:        entry.Attributes.Language,
			Release:         strings.TrimSpace(entry.Attributes.Release),
			FeatureTitle:    entry.Attributes.FeatureDetails.Title,
			Downloads:       entry.Attributes.DownloadCount,
			HearingImpaired: entry.Attributes.HearingImpaired,
		})
	}
	return SearchResponse{Subtitles: subtitles, Total: payload.Meta.Total}, nil
}

// Download negotiates a download link for fileID and fetches the payload.
func (c *Client) Download(ctx context.Context, fileID int64) (DownloadResult, error) {
	if c == nil {
		return DownloadResult{}, errors.New("opensubtitles: client is nil")
	}
	if fileID <= 0 {
		return DownloadResult{}, errors.New("opensubtitles: invalid file id")
	}
	payload, err := json.Marshal(map[string]any{"file_id": fileID})
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: encode download request: %w", err)
	}

	endpoint := c.baseURL.JoinPath("download")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: build download request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.applyHeaders(httpReq)
	var info downloadResponse
	if err := c.doJSON(httpReq, "download negotiation", &info); err != nil {
		return DownloadResult{}, err
	}
	if info.Link == "" {
		return DownloadResult{}, errors.New("opensubtitles: download response missing link")
	}

	downloadURL, err := endpoint.Parse(info.Link)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: parse download url: %w", err)
	}

	dataReq, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL.String(), nil)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: build link request: %w", err)
	}
	dataReq.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(dataReq)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: fetch subtitle payload: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "subtitle download"); err != nil {
		return DownloadResult{}, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("opensubtitles: read subtitle data: %w", err)
	}

	return DownloadResult{
		Data:        data,
		FileName:    info.FileName,
		Language:    info.Language,
		DownloadURL: downloadURL.String(),
	}, nil
}

func (c *Client) doJSON(req *http.Request, operation string, target any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("opensubtitles: %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, operation); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("opensubtitles: decode %s response: %w", operation, err)
	}
	return nil
}

func checkStatus(resp *http.Response, operation string) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.userToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.userToken)
	}
}

// SanitizeIMDBID strips the "tt" prefix and returns the numeric id, or ""
// when value is not an imdb id.
func SanitizeIMDBID(value string) string {
	value = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(value)), "tt")
	if value == "" {
		return ""
	}
	if _, err := strconv.ParseInt(value, 10, 64); err != nil {
		return ""
	}
	return value
}

type searchResponse struct {
	Data []struct {
		ID         string           `json:"id"`
		Attributes searchAttributes `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Total int `json:"total_count"`
	} `json:"meta"`
}

type searchAttributes struct {
	Language        string         `json:"language"`
	Release         string         `json:"release"`
	DownloadCount   int            `json:"download_count"`
	HearingImpaired bool           `json:"hearing_impaired"`
	FeatureDetails  featureDetails `json:"feature_details"`
	Files           []searchFile   `json:"files"`
}

func (a searchAttributes) PrimaryFileID() int64 {
	if len(a.Files) == 0 {
		return 0
	}
	return a.Files[0].FileID
}

type featureDetails struct {
	Title string `json:"title"`
}

type searchFile struct {
	FileID int64 `json:"file_id"`
}

type downloadResponse struct {
	Link     string `json:"link"`
	FileName string `json:"file_name"`
	Language string `json:"language"`
}
