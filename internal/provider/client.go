package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const (
	DefaultBaseURL = "https://opentdb.com/api.php"
	DefaultAmount  = 10
	DefaultType    = "multiple"
)

// Open Trivia DB response codes.
const (
	codeSuccess     = 0
	codeRateLimited = 5
)

// Config describes the remote question provider. Retry.MaxRetries is used as
// given; a zero Retry.Unit falls back to DefaultRetryPolicy.Unit.
type Config struct {
	BaseURL string
	Amount  int
	Type    string
	Timeout time.Duration
	Retry   RetryPolicy
}

// Client fetches question batches from an Open Trivia DB compatible endpoint.
// Concurrent FetchBatch calls share one in-flight request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
	sf         singleflight.Group

	mu       sync.Mutex
	waiters  int
	inflight *flight
}

const flightKey = "batch"

type flight struct {
	cancel context.CancelFunc
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Amount <= 0 {
		cfg.Amount = DefaultAmount
	}
	if cfg.Type == "" {
		cfg.Type = DefaultType
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.Unit <= 0 {
		cfg.Retry.Unit = DefaultRetryPolicy.Unit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		validate:   validator.New(),
		logger:     logger,
	}
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type apiQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Category         string   `json:"category" validate:"required"`
	Question         string   `json:"question" validate:"required"`
	CorrectAnswer    string   `json:"correct_answer" validate:"required"`
	IncorrectAnswers []string `json:"incorrect_answers" validate:"min=1,dive,required"`
}

// FetchBatch requests one batch, retrying rate-limit and transport failures per the
// retry policy. Terminal failures are returned as *domain.FetchError.
// Concurrent callers share one request; a caller that gives up returns ctx.Err()
// while the shared request keeps running for the others.
func (c *Client) FetchBatch(ctx context.Context) ([]domain.Question, error) {
	c.mu.Lock()
	c.waiters++
	c.mu.Unlock()

	ch := c.sf.DoChan(flightKey, func() (interface{}, error) {
		return c.sharedFetch(ctx)
	})
	select {
	case res := <-ch:
		c.leave(false)
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]domain.Question(nil), res.Val.([]domain.Question)...), nil
	case <-ctx.Done():
		c.leave(true)
		return nil, ctx.Err()
	}
}

// sharedFetch runs detached from the starting caller's cancellation; only the
// last waiter giving up cancels it.
func (c *Client) sharedFetch(ctx context.Context) ([]domain.Question, error) {
	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{cancel: cancel}
	c.mu.Lock()
	c.inflight = f
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.inflight == f {
			c.inflight = nil
		}
		c.mu.Unlock()
		cancel()
	}()
	return c.fetchWithRetry(fctx)
}

func (c *Client) leave(abandoned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters--
	if abandoned && c.waiters == 0 && c.inflight != nil {
		c.inflight.cancel()
		c.inflight = nil
		// Callers arriving now must not join the cancelled request.
		c.sf.Forget(flightKey)
	}
}

func (c *Client) fetchWithRetry(ctx context.Context) ([]domain.Question, error) {
	notice := app.RetryNoticeFrom(ctx)
	attempts := c.cfg.Retry.Attempts()

	for attempt := 1; ; attempt++ {
		questions, err := c.fetchOnce(ctx)
		if err == nil {
			return questions, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !retryable(err) || attempt >= attempts {
			return nil, &domain.FetchError{Reason: domain.ReasonFor(err), Attempts: attempt, Err: err}
		}

		delay := c.cfg.Retry.Delay(attempt)
		c.logger.Warn("question fetch failed, retrying", "attempt", attempt, "delay", delay, "err", err)
		notice(attempt, delay)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrTransport)
}

func (c *Client) fetchOnce(ctx context.Context) ([]domain.Question, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", domain.ErrProviderFailure, err)
	}
	q := endpoint.Query()
	q.Set("amount", strconv.Itoa(c.cfg.Amount))
	q.Set("type", c.cfg.Type)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTransportErr(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	switch payload.ResponseCode {
	case codeSuccess:
	case codeRateLimited:
		return nil, fmt.Errorf("%w: response code %d", domain.ErrRateLimited, payload.ResponseCode)
	default:
		return nil, fmt.Errorf("%w: response code %d", domain.ErrProviderFailure, payload.ResponseCode)
	}

	questions := c.toQuestions(payload.Results)
	if len(questions) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return questions, nil
}

// toQuestions keeps the entries that pass validation; text is passed through undecoded.
func (c *Client) toQuestions(results []apiQuestion) []domain.Question {
	questions := make([]domain.Question, 0, len(results))
	for i, r := range results {
		if err := c.validate.Struct(r); err != nil {
			c.logger.Debug("dropping invalid question", "index", i, "err", err)
			continue
		}
		questions = append(questions, domain.Question{
			Text:             r.Question,
			Category:         r.Category,
			Difficulty:       domain.Difficulty(r.Difficulty),
			CorrectAnswer:    r.CorrectAnswer,
			IncorrectAnswers: append([]string(nil), r.IncorrectAnswers...),
		})
	}
	return questions
}

func isTransportErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
