package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harun/ctx/pkg/svcerr"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the Trello REST API root
const DefaultBaseURL = "https://api.trello.com/1/"

// Client is a Trello REST API client
type Client struct {
	baseURL    *url.URL
	apiKey     string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// New creates a new Trello client
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("trello api key is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("trello token is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid trello base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "trello").Logger(),
	}, nil
}

// Me returns the authenticated member
func (c *Client) Me(ctx context.Context) (*Member, error) {
	var member Member
	if err := c.do(ctx, http.MethodGet, "members/me", nil, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// Boards lists the boards the member can access
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	var boards []Board
	if err := c.do(ctx, http.MethodGet, "members/me/boards", nil, nil, &boards); err != nil {
		return nil, err
	}
	for _, b := range boards {
		if err := b.validate(); err != nil {
			return nil, err
		}
	}
	return boards, nil
}

// Lists lists the lists on a board
func (c *Client) Lists(ctx context.Context, boardID string) ([]List, error) {
	var lists []List
	if err := c.do(ctx, http.MethodGet, "boards/"+url.PathEscape(boardID)+"/lists", nil, nil, &lists); err != nil {
		return nil, err
	}
	for _, l := range lists {
		if err := l.validate(); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// Cards lists the open cards on a list
func (c *Client) Cards(ctx context.Context, listID string) ([]Card, error) {
	var cards []Card
	if err := c.do(ctx, http.MethodGet, "lists/"+url.PathEscape(listID)+"/cards", nil, nil, &cards); err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := card.validate(); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// CreateCard creates a card on a list
func (c *Client) CreateCard(ctx context.Context, card NewCard) (*Card, error) {
	if card.ListID == "" {
		return nil, svcerr.New(svcerr.CodeValidation, "list id is required to create a card")
	}
	body := createCardBody{
		Name:   card.Name,
		IDList: card.ListID,
		Desc:   card.Desc,
	}
	if card.Due != nil {
		body.Due = card.Due.UTC().Format(time.RFC3339)
	}
	return c.cardRequest(ctx, http.MethodPost, "cards", nil, body)
}

// CreateBoard creates a board
func (c *Client) CreateBoard(ctx context.Context, name string) (*Board, error) {
	var board Board
	if err := c.do(ctx, http.MethodPost, "boards", nil, map[string]string{"name": name}, &board); err != nil {
		return nil, err
	}
	if err := board.validate(); err != nil {
		return nil, err
	}
	return &board, nil
}

// CreateList creates a list on a board
func (c *Client) CreateList(ctx context.Context, boardID, name string) (*List, error) {
	var list List
	body := map[string]string{"name": name, "idBoard": boardID}
	if err := c.do(ctx, http.MethodPost, "lists", nil, body, &list); err != nil {
		return nil, err
	}
	if err := list.validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// MoveCard moves a card to another list
func (c *Client) MoveCard(ctx context.Context, cardID, targetListID string) (*Card, error) {
	return c.cardRequest(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), url.Values{"idList": {targetListID}}, nil)
}

// ArchiveCard closes a card
func (c *Client) ArchiveCard(ctx context.Context, cardID string) (*Card, error) {
	return c.cardRequest(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), url.Values{"closed": {"true"}}, nil)
}

// SetDue sets the due date of a card
func (c *Client) SetDue(ctx context.Context, cardID string, due time.Time) (*Card, error) {
	return c.cardRequest(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), url.Values{"due": {due.UTC().Format(time.RFC3339)}}, nil)
}

// ClearDue removes the due date of a card
func (c *Client) ClearDue(ctx context.Context, cardID string) (*Card, error) {
	return c.cardRequest(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), url.Values{"due": {"null"}}, nil)
}

// SetDescription replaces the description of a card
func (c *Client) SetDescription(ctx context.Context, cardID, desc string) (*Card, error) {
	return c.cardRequest(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), url.Values{"desc": {desc}}, nil)
}

func (c *Client) cardRequest(ctx context.Context, method, path string, params url.Values, body interface{}) (*Card, error) {
	var card Card
	if err := c.do(ctx, method, path, params, body, &card); err != nil {
		return nil, err
	}
	if err := card.validate(); err != nil {
		return nil, err
	}
	return &card, nil
}

// buildURL resolves path against the base URL and adds credentials
func (c *Client) buildURL(path string, params url.Values) string {
	u := c.baseURL.JoinPath(path)
	query := url.Values{}
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("key", c.apiKey)
	query.Set("token", c.token)
	u.RawQuery = query.Encode()
	return u.String()
}

// do performs a request and decodes the JSON response into out.
// Every failure is returned as *svcerr.Error.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return svcerr.Wrap(svcerr.CodeValidation, "Failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, params), reader)
	if err != nil {
		return svcerr.Wrap(svcerr.CodeNetwork, "Failed to build Trello request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Trello request failed")
		return svcerr.Wrap(svcerr.CodeNetwork, "Failed to connect to Trello API", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Trello request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return svcerr.New(svcerr.CodeAPI, fmt.Sprintf("Request failed with status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return svcerr.Wrap(svcerr.CodeParse, "Response was not valid JSON", err)
	}
	return nil
}
