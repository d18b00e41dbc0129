package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/keep/internal/errors"
	"github.com/hpungsan/keep/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers. The caller principal
// is fixed at server start; it is never taken from request arguments.
type Handlers struct {
	ledger *ops.Ledger
	caller string
}

// NewHandlers creates a new Handlers instance bound to a principal.
func NewHandlers(ledger *ops.Ledger, caller string) *Handlers {
	return &Handlers{ledger: ledger, caller: caller}
}

// Request types for each tool

// CreateRequest represents the arguments for create.
type CreateRequest struct {
	Recipient string  `json:"recipient"`
	Payload   string  `json:"payload"`
	Value     int64   `json:"value,omitempty"`
	Delay     int64   `json:"delay"`
	Kind      string  `json:"kind,omitempty"`
	Metadata  *string `json:"metadata,omitempty"`
	Public    bool    `json:"public,omitempty"`
}

// OpenRequest represents the arguments for open and preview.
type OpenRequest struct {
	ID uint64 `json:"id"`
}

// ShowRequest represents the arguments for show.
type ShowRequest struct {
	ID uint64 `json:"id"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Handler implementations

// HandleCreate handles the create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ledger.Create(ops.CreateInput{
		Caller:    h.caller,
		Recipient: input.Recipient,
		Payload:   input.Payload,
		Value:     input.Value,
		Delay:     input.Delay,
		Kind:      input.Kind,
		Metadata:  input.Metadata,
		Public:    input.Public,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleOpen handles the open tool call.
func (h *Handlers) HandleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OpenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ledger.Open(ops.OpenInput{Caller: h.caller, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePreview handles the preview tool call.
func (h *Handlers) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OpenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ledger.Preview(ops.PreviewInput{Caller: h.caller, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ledger.Show(ops.ShowInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ledger.List(ops.ListInput{
		Principal: h.caller,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.ledger.Stats()
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if lErr, ok := err.(*errors.LedgerError); ok {
		errorObj := map[string]any{
			"code":    lErr.Code,
			"message": lErr.Message,
			"status":  lErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if lErr.Code != errors.ErrInternal && lErr.Details != nil {
			errorObj["details"] = lErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
