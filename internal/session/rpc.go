package session

import (
	"context"
	"errors"

	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// Request types of the cross-context contract.
const (
	TypeGetMessages     = "GET_MESSAGES"
	TypeGetMessagePairs = "GET_MESSAGE_PAIRS"
	TypePerformAction   = "PERFORM_ACTION"
	TypeJumpToMessage   = "JUMP_TO_MESSAGE"
	TypeJumpBack        = "JUMP_BACK"
	TypeGetJumpHistory  = "GET_JUMP_HISTORY"
	TypeExportData      = "EXPORT_DATA"
)

// Request is one cross-context request addressed to a tab.
type Request struct {
	Type      string         `json:"type"`
	MessageID string         `json:"messageId,omitempty"`
	Action    message.Action `json:"action,omitempty"`
	Format    string         `json:"format,omitempty"`
}

// Response is the reply envelope. Data never carries element references.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExportResult is the data of a successful EXPORT_DATA.
type ExportResult struct {
	Path string `json:"path"`
}

// JumpResult is the data of a successful JUMP_TO_MESSAGE: a link that jumps
// to the same message when opened.
type JumpResult struct {
	URL string `json:"url"`
}

// JumpBackResult is the data of JUMP_BACK. Jumped is false when the history
// holds fewer than two entries.
type JumpBackResult struct {
	Jumped bool `json:"jumped"`
}

// ErrUnknownType is reported for a request type nobody handles.
var ErrUnknownType = errors.New("Unknown message type")

// Handle answers req. Failures are reported in the envelope, never raised.
func (s *Session) Handle(ctx context.Context, req Request) Response {
	switch req.Type {
	case TypeGetMessages:
		return Response{Success: true, Data: s.Messages(ctx)}

	case TypeGetMessagePairs:
		return Response{Success: true, Data: s.Pairs(ctx)}

	case TypePerformAction:
		if err := s.PerformAction(ctx, req.MessageID, req.Action); err != nil {
			s.logger.Warn("action failed", "action", req.Action, "message_id", req.MessageID, "error", err)
			return failure(err)
		}
		return Response{Success: true}

	case TypeJumpToMessage:
		if err := s.jump.JumpToMessage(ctx, req.MessageID); err != nil {
			return failure(err)
		}
		return Response{Success: true, Data: JumpResult{URL: s.jump.JumpURL(req.MessageID)}}

	case TypeJumpBack:
		jumped, err := s.jump.JumpBack(ctx)
		if err != nil {
			return failure(err)
		}
		return Response{Success: true, Data: JumpBackResult{Jumped: jumped}}

	case TypeGetJumpHistory:
		hist, err := s.jump.History(ctx)
		if err != nil {
			return failure(err)
		}
		if hist == nil {
			hist = []message.JumpInfo{}
		}
		return Response{Success: true, Data: hist}

	case TypeExportData:
		path, err := s.Export(ctx, req.Format)
		if err != nil {
			s.logger.Error("export failed", "format", req.Format, "error", err)
			return failure(err)
		}
		s.logger.Info("exported", "path", path)
		return Response{Success: true, Data: ExportResult{Path: path}}
	}
	return failure(ErrUnknownType)
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
