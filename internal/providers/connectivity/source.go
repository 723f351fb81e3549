package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/coreplane/activityd/internal/infrastructure/resilience"
)

// Source supplies upstream connection status payloads. Start may be called
// once; updates and errors arrive on source-owned goroutines.
type Source interface {
	Start(onUpdate func(map[string]interface{}), onError func(err error, permanent bool))
	Stop()
}

// Update injects a status payload as if it arrived from the upstream
// source. Used by tests and by deployments that push status over the bus
// instead of polling.
func (p *Provider) Update(payload map[string]interface{}) {
	p.loop.Do(func() {
		if p.enabled {
			p.update(payload)
		}
	})
}

// HTTPSource polls a connection-manager status endpoint. Transient
// failures retry with backoff inside the client; a tripped circuit breaker
// classifies the subscription as permanently failed.
type HTTPSource struct {
	url      string
	interval time.Duration
	client   *retryablehttp.Client
	breaker  *resilience.Breaker
	cancel   context.CancelFunc
}

// NewHTTPSource creates a polling source for the status URL.
func NewHTTPSource(url string, interval time.Duration) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil

	return &HTTPSource{
		url:      url,
		interval: interval,
		client:   client,
		breaker: resilience.New("connectivity-upstream", resilience.Settings{
			Timeout: 5 * time.Minute,
		}),
	}
}

// Start begins polling until Stop.
func (s *HTTPSource) Start(onUpdate func(map[string]interface{}), onError func(err error, permanent bool)) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			s.poll(ctx, onUpdate, onError)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts polling.
func (s *HTTPSource) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *HTTPSource) poll(ctx context.Context, onUpdate func(map[string]interface{}), onError func(err error, permanent bool)) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decoding status payload: %w", err)
		}
		return payload, nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		onError(err, err == resilience.ErrCircuitOpen)
		return
	}

	onUpdate(result.(map[string]interface{}))
}

// FuncSource adapts an injected update feed for tests and embedded use.
type FuncSource struct {
	onUpdate func(map[string]interface{})
}

// NewFuncSource creates a source that delivers nothing on its own; push
// payloads through Send.
func NewFuncSource() *FuncSource {
	return &FuncSource{}
}

// Start implements Source.
func (s *FuncSource) Start(onUpdate func(map[string]interface{}), onError func(err error, permanent bool)) {
	s.onUpdate = onUpdate
}

// Stop implements Source.
func (s *FuncSource) Stop() {
	s.onUpdate = nil
}

// Send pushes one payload to the subscriber, if started.
func (s *FuncSource) Send(payload map[string]interface{}) {
	if s.onUpdate != nil {
		s.onUpdate(payload)
	}
}
