// Package gateway is the thin client for the backend's scanner API. It only
// knows how to move batches over the wire; reconciliation of the per-item
// outcome stays with the sync service.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/observability"
)

// ScannerGateway defines the backend operations the sync subsystem depends on
type ScannerGateway interface {
	Ping(ctx context.Context) error
	CreateSession(ctx context.Context, dto models.SessionCreateDTO) (*models.SessionDTO, error)
	UpdateSession(ctx context.Context, sessionID string, dto models.SessionUpdateDTO) (*models.SessionDTO, error)
	FinishSession(ctx context.Context, sessionID, notes string) error
	CancelSession(ctx context.Context, sessionID string) error
	SyncSessions(ctx context.Context, req models.SessionSyncRequest) (*models.SyncResponse, error)
	SyncResults(ctx context.Context, req models.ResultSyncRequest) (*models.SyncResponse, error)
	GetSessions(ctx context.Context) ([]models.SessionDTO, error)
	GetZones(ctx context.Context) ([]models.ZoneDTO, error)
}

// ScannerClient talks to the backend scanner API over HTTP
type ScannerClient struct {
	http *resty.Client
}

// NewScannerClient creates a client for the given backend base URL. The token
// is attached as a bearer credential; token acquisition and refresh live with
// the auth collaborator, not here.
func NewScannerClient(baseURL, token string, timeout time.Duration) *ScannerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(token)

	return &ScannerClient{http: client}
}

// Ping probes backend reachability; used as the connectivity gate for
// scheduled sync
func (c *ScannerClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health/")
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("backend health check failed: %s", resp.Status())
	}
	return nil
}

// CreateSession registers a new session with the backend
func (c *ScannerClient) CreateSession(ctx context.Context, dto models.SessionCreateDTO) (*models.SessionDTO, error) {
	var created models.SessionDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(dto).
		SetResult(&created).
		Post("/api/scanners/sessions/")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create session rejected: %s", resp.Status())
	}
	return &created, nil
}

// UpdateSession patches an already-created session
func (c *ScannerClient) UpdateSession(ctx context.Context, sessionID string, dto models.SessionUpdateDTO) (*models.SessionDTO, error) {
	var updated models.SessionDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(dto).
		SetResult(&updated).
		Patch(fmt.Sprintf("/api/scanners/sessions/%s/", sessionID))
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("update session rejected: %s", resp.Status())
	}
	return &updated, nil
}

// FinishSession marks a session COMPLETED on the backend
func (c *ScannerClient) FinishSession(ctx context.Context, sessionID, notes string) error {
	body := map[string]string{}
	if notes != "" {
		body["notes"] = notes
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/api/scanners/sessions/%s/finish/", sessionID))
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("finish session rejected: %s", resp.Status())
	}
	return nil
}

// CancelSession marks a session CANCELLED on the backend
func (c *ScannerClient) CancelSession(ctx context.Context, sessionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/api/scanners/sessions/%s/cancel/", sessionID))
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cancel session rejected: %s", resp.Status())
	}
	return nil
}

// SyncSessions submits the session batch and returns the per-item envelope
func (c *ScannerClient) SyncSessions(ctx context.Context, req models.SessionSyncRequest) (*models.SyncResponse, error) {
	ctx, span := observability.StartGatewaySpan(ctx, "SyncSessions")
	defer span.End()

	var out models.SyncResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/scanners/sessions/sync/")
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("sync sessions: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("sync sessions rejected: %s", resp.Status())
		observability.RecordError(span, err)
		return nil, err
	}
	return &out, nil
}

// SyncResults submits the result batch and returns the per-item envelope
func (c *ScannerClient) SyncResults(ctx context.Context, req models.ResultSyncRequest) (*models.SyncResponse, error) {
	ctx, span := observability.StartGatewaySpan(ctx, "SyncResults")
	defer span.End()

	var out models.SyncResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/scanners/results/sync/")
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("sync results: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("sync results rejected: %s", resp.Status())
		observability.RecordError(span, err)
		return nil, err
	}
	return &out, nil
}

// GetSessions fetches the worker's sessions with nested results
func (c *ScannerClient) GetSessions(ctx context.Context) ([]models.SessionDTO, error) {
	var sessions []models.SessionDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&sessions).
		Get("/api/scanners/sessions/")
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get sessions rejected: %s", resp.Status())
	}
	return sessions, nil
}

// GetZones fetches the company's zones with nested crops
func (c *ScannerClient) GetZones(ctx context.Context) ([]models.ZoneDTO, error) {
	var zones []models.ZoneDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&zones).
		Get("/api/zonecrop/zones/")
	if err != nil {
		return nil, fmt.Errorf("get zones: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get zones rejected: %s", resp.Status())
	}
	return zones, nil
}
