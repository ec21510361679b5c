package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/tracing"
	"github.com/diwise/alarm-mgmt/pkg/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

type AlarmManagementClient interface {
	Ingest(ctx context.Context, e types.Event) (types.IngestResult, error)
	SetStatus(ctx context.Context, alarmID, status, text string) (types.Alarm, error)
	GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error)
	Query(ctx context.Context, params url.Values) (types.Collection[types.Alarm], error)
	Close(ctx context.Context)
}

type alarmMgmtClient struct {
	url        string
	httpClient http.Client
}

var tracer = otel.Tracer("alarm-mgmt-client")

// New creates a client for the alarm management API. Requests are
// authenticated with client credentials unless oauthTokenURL is empty.
func New(ctx context.Context, alarmMgmtURL, oauthTokenURL, oauthClientID, oauthClientSecret string) (AlarmManagementClient, error) {
	transport := otelhttp.NewTransport(http.DefaultTransport)

	c := &alarmMgmtClient{
		url:        strings.TrimSuffix(alarmMgmtURL, "/"),
		httpClient: http.Client{Transport: transport},
	}

	if oauthTokenURL == "" {
		return c, nil
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSecret,
		TokenURL:     oauthTokenURL,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: transport})

	token, err := oauthConfig.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get client credentials from %s: %w", oauthConfig.TokenURL, err)
	}

	if !token.Valid() {
		return nil, fmt.Errorf("an invalid token was returned from %s", oauthTokenURL)
	}

	c.httpClient = *oauthConfig.Client(ctx)

	return c, nil
}

func (c *alarmMgmtClient) Ingest(ctx context.Context, e types.Event) (types.IngestResult, error) {
	var err error
	ctx, span := tracer.Start(ctx, "ingest-event")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result := types.IngestResult{}
	err = c.do(ctx, http.MethodPost, c.url+"/api/v0/alarms", e, http.StatusCreated, &result)

	return result, err
}

func (c *alarmMgmtClient) SetStatus(ctx context.Context, alarmID, status, text string) (types.Alarm, error) {
	var err error
	ctx, span := tracer.Start(ctx, "set-alarm-status")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result := types.AlarmResult{}
	body := types.StatusRequest{Status: status, Text: text}
	err = c.do(ctx, http.MethodPost, c.url+"/api/v0/alarms/"+url.PathEscape(alarmID)+"/status", body, http.StatusOK, &result)

	return result.Alarm, err
}

func (c *alarmMgmtClient) GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-alarm")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result := types.AlarmResult{}
	err = c.do(ctx, http.MethodGet, c.url+"/api/v0/alarms/"+url.PathEscape(alarmID), nil, http.StatusOK, &result)

	return result.Alarm, err
}

func (c *alarmMgmtClient) Query(ctx context.Context, params url.Values) (types.Collection[types.Alarm], error) {
	var err error
	ctx, span := tracer.Start(ctx, "query-alarms")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	u := c.url + "/api/v0/alarms"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	result := types.Collection[types.Alarm]{}
	err = c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &result)

	return result, err
}

func (c *alarmMgmtClient) Close(ctx context.Context) {
	c.httpClient.CloseIdleConnections()
}

func (c *alarmMgmtClient) do(ctx context.Context, method, u string, body any, expected int, result any) error {
	log := logging.GetLoggerFromContext(ctx)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		log.Debug().Msgf("%s %s returned status code %d", method, u, resp.StatusCode)
		return errorFromStatusCode(resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	err = json.Unmarshal(respBody, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}

func errorFromStatusCode(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	}
	return fmt.Errorf("unexpected response code %d", code)
}
