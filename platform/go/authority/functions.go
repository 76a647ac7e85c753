package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Callable function names, as deployed.
const (
	FnCreateDefect  = "createDefectWithUniqueKey"
	FnCreateComment = "createDefectComment"
	FnUpdateComment = "updateDefectComment"
	FnDeleteComment = "deleteDefectComment"
	FnExportDefects = "exportDefects"
	FnImportDefects = "importDefects"
	FnInitRefValues = "initializeDefectReferenceValues"
)

// FunctionsConfig configures the HTTPS callable-functions client.
type FunctionsConfig struct {
	// BaseURL is the functions origin, e.g. https://europe-west1-veritest.cloudfunctions.net
	BaseURL string
	// TokenSource, when set, supplies a bearer token per request. The layer
	// receives an already-authenticated identity; it does not mint tokens.
	TokenSource func(ctx context.Context) (string, error)
	// HTTPClient overrides the default client; callers wrap their own
	// timeout/cancellation around each operation.
	HTTPClient *http.Client
}

// FunctionsClient invokes the backend authority over the Firebase callable
// protocol: POST {"data": …} and either {"result": …} or {"error": {…}} back.
type FunctionsClient struct {
	baseURL     string
	tokenSource func(ctx context.Context) (string, error)
	httpClient  *http.Client
}

var _ Authority = (*FunctionsClient)(nil)

// NewFunctionsClient constructs the production authority client.
func NewFunctionsClient(cfg FunctionsConfig) (*FunctionsClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("functions base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &FunctionsClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenSource: cfg.TokenSource,
		httpClient:  httpClient,
	}, nil
}

type callableEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type callableResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *callableError  `json:"error"`
}

type callableError struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// call performs one callable invocation. out may be nil for functions whose
// result payload is ignored.
func (c *FunctionsClient) call(ctx context.Context, function string, in interface{}, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &AuthorityError{Function: function, Err: fmt.Errorf("encode request: %w", err)}
	}

	body, err := json.Marshal(callableEnvelope{Data: payload})
	if err != nil {
		return &AuthorityError{Function: function, Err: fmt.Errorf("encode envelope: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+function, bytes.NewReader(body))
	if err != nil {
		return &AuthorityError{Function: function, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, tokenErr := c.tokenSource(ctx)
		if tokenErr != nil {
			return &AuthorityError{Function: function, Err: fmt.Errorf("obtain token: %w", tokenErr)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthorityError{Function: function, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthorityError{Function: function, Err: fmt.Errorf("read response: %w", err)}
	}

	var envelope callableResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &AuthorityError{
			Function: function,
			Status:   http.StatusText(resp.StatusCode),
			Err:      fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err),
		}
	}

	if envelope.Error != nil {
		return &AuthorityError{Function: function, Status: envelope.Error.Status, Message: envelope.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthorityError{Function: function, Status: http.StatusText(resp.StatusCode), Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &AuthorityError{Function: function, Err: fmt.Errorf("decode result: %w", err)}
		}
	}

	return nil
}

type createDefectRequest struct {
	OrganizationID string        `json:"organizationId"`
	ProjectID      string        `json:"projectId"`
	Payload        DefectPayload `json:"payload"`
}

type createDefectResponse struct {
	ID     string     `json:"id"`
	Defect defectWire `json:"defect"`
}

func (c *FunctionsClient) CreateDefectWithUniqueKey(ctx context.Context, organizationID, projectID string, payload DefectPayload) (CreatedDefect, error) {
	var resp createDefectResponse
	err := c.call(ctx, FnCreateDefect, createDefectRequest{
		OrganizationID: organizationID,
		ProjectID:      projectID,
		Payload:        payload,
	}, &resp)
	if err != nil {
		return CreatedDefect{}, err
	}

	return CreatedDefect{ID: resp.ID, Doc: resp.Defect.toDoc()}, nil
}

type commentRequest struct {
	OrganizationID string `json:"organizationId"`
	ProjectID      string `json:"projectId"`
	DefectID       string `json:"defectId"`
	CommentID      string `json:"commentId,omitempty"`
	Body           string `json:"body,omitempty"`
	AuthorID       string `json:"authorId,omitempty"`
}

type createCommentResponse struct {
	ID      string      `json:"id"`
	Comment commentWire `json:"comment"`
}

func (c *FunctionsClient) CreateComment(ctx context.Context, ref CommentRef, payload CommentPayload) (CreatedComment, error) {
	var resp createCommentResponse
	err := c.call(ctx, FnCreateComment, commentRequest{
		OrganizationID: ref.OrganizationID,
		ProjectID:      ref.ProjectID,
		DefectID:       ref.DefectID,
		Body:           payload.Body,
		AuthorID:       payload.AuthorID,
	}, &resp)
	if err != nil {
		return CreatedComment{}, err
	}

	return CreatedComment{ID: resp.ID, Doc: resp.Comment.toDoc()}, nil
}

func (c *FunctionsClient) UpdateComment(ctx context.Context, ref CommentRef, commentID, body string) error {
	return c.call(ctx, FnUpdateComment, commentRequest{
		OrganizationID: ref.OrganizationID,
		ProjectID:      ref.ProjectID,
		DefectID:       ref.DefectID,
		CommentID:      commentID,
		Body:           body,
	}, nil)
}

func (c *FunctionsClient) DeleteComment(ctx context.Context, ref CommentRef, commentID string) error {
	return c.call(ctx, FnDeleteComment, commentRequest{
		OrganizationID: ref.OrganizationID,
		ProjectID:      ref.ProjectID,
		DefectID:       ref.DefectID,
		CommentID:      commentID,
	}, nil)
}

func (c *FunctionsClient) ExportDefects(ctx context.Context, req ExportRequest) (ExportResult, error) {
	var result ExportResult
	if err := c.call(ctx, FnExportDefects, req, &result); err != nil {
		return ExportResult{}, err
	}
	return result, nil
}

type importRequest struct {
	OrganizationID string          `json:"organizationId"`
	ProjectID      string          `json:"projectId"`
	Records        []DefectPayload `json:"records"`
	DryRun         bool            `json:"dryRun"`
}

func (c *FunctionsClient) ImportDefects(ctx context.Context, organizationID, projectID string, records []DefectPayload, dryRun bool) (ImportReport, error) {
	var report ImportReport
	err := c.call(ctx, FnImportDefects, importRequest{
		OrganizationID: organizationID,
		ProjectID:      projectID,
		Records:        records,
		DryRun:         dryRun,
	}, &report)
	if err != nil {
		return ImportReport{}, err
	}
	return report, nil
}

type initRefValuesRequest struct {
	OrganizationID string `json:"organizationId"`
}

func (c *FunctionsClient) InitializeReferenceValues(ctx context.Context, organizationID string) error {
	return c.call(ctx, FnInitRefValues, initRefValuesRequest{OrganizationID: organizationID}, nil)
}
