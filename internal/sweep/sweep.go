// Package sweep checks that the services the CCI tooling depends on are up
// and reports their status to Slack.
package sweep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Status markers used in the report.
const (
	Green = ":large_green_circle:"
	Red   = ":red_circle:"
)

// Username is the Slack display name of the report.
const Username = "CCI Service Sweeper"

// Service is one endpoint to check.
type Service struct {
	Name string
	URL  string
}

// ParseServices decodes "name=url" pairs.
func ParseServices(pairs []string) ([]Service, error) {
	services := make([]Service, 0, len(pairs))
	for _, p := range pairs {
		name, url, ok := strings.Cut(p, "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("service %q must be name=url", p)
		}
		services = append(services, Service{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return services, nil
}

// Status is the outcome of checking one service.
type Status struct {
	Service Service
	// Code is zero when the request failed before a response.
	Code int
	Err  error
}

// Up reports whether the service answered with a 2xx status.
func (s Status) Up() bool {
	return s.Err == nil && s.Code >= 200 && s.Code < 300
}

// Marker returns the Slack emoji for the status.
func (s Status) Marker() string {
	if s.Up() {
		return Green
	}
	return Red
}

// Sweeper GETs each service.
type Sweeper struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(httpClient *http.Client) *Sweeper {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Sweeper{httpClient: httpClient, logger: slog.Default()}
}

// WithLogger sets a custom logger for the sweeper.
func (s *Sweeper) WithLogger(logger *slog.Logger) *Sweeper {
	s.logger = logger
	return s
}

// Check requests every service in order. Failures are part of the result,
// not errors.
func (s *Sweeper) Check(ctx context.Context, services []Service) []Status {
	statuses := make([]Status, 0, len(services))
	for _, svc := range services {
		st := Status{Service: svc}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL, nil)
		if err != nil {
			st.Err = err
		} else {
			resp, err := s.httpClient.Do(req)
			if err != nil {
				st.Err = err
			} else {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				st.Code = resp.StatusCode
			}
		}

		attrs := []any{slog.String("service", svc.Name), slog.String("url", svc.URL), slog.Int("status", st.Code)}
		if st.Up() {
			s.logger.InfoContext(ctx, "service up", attrs...)
		} else {
			if st.Err != nil {
				attrs = append(attrs, slog.String("error", st.Err.Error()))
			}
			s.logger.WarnContext(ctx, "service down", attrs...)
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// Message renders the Slack report text.
func Message(statuses []Status) string {
	names := make([]string, len(statuses))
	markers := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.Service.Name
		markers[i] = st.Marker()
	}
	return strings.Join([]string{
		"Service Status Report:",
		"Services: " + strings.Join(names, ", "),
		strings.Join(markers, " "),
	}, "\n")
}

// Notifier posts messages to a Slack incoming webhook.
type Notifier struct {
	webhook    string
	httpClient *http.Client
}

// NewNotifier creates a Notifier for a webhook URL.
func NewNotifier(webhook string, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Notifier{webhook: webhook, httpClient: httpClient}
}

// Notify posts text to the webhook.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text, "username": Username})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
