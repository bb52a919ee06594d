package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/session"
)

// Orchestrator is the part of session.Orchestrator the service drives.
type Orchestrator interface {
	Submit(ctx context.Context, owner, id string, paths []string) (session.Key, error)
	Store() *session.Store
}

type ExtractionService struct {
	orch   Orchestrator
	logger *slog.Logger
}

func NewExtractionService(orch Orchestrator, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{orch: orch, logger: logger}
}

// SubmitBatch starts a session over {owner_id, session_id, paths}. It returns as soon as the
// batch is staged; progress is read with GetSessionStatus.
func (s *ExtractionService) SubmitBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := stringField(req, "owner_id")
	id := stringField(req, "session_id")
	paths, err := stringsField(req, "paths")
	if err != nil {
		return nil, common.ToStatus(err)
	}

	key, err := s.orch.Submit(ctx, owner, id, paths)
	if err != nil {
		s.logger.Warn("submit batch rejected", "request_id", common.RequestIDFromContext(ctx), "owner_id", owner, "session_id", id, "error", err)
		return nil, common.ToStatus(err)
	}
	s.logger.Info("batch submitted", "request_id", common.RequestIDFromContext(ctx), "session", key.String(), "files", len(paths))

	resp, err := structpb.NewStruct(map[string]any{
		"status":     "started",
		"session_id": key.ID,
		"message":    "Processing started in background.",
		"status_rpc": getSessionStatusMethod,
	})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return resp, nil
}

// GetSessionStatus returns the session snapshot for {owner_id, session_id}.
func (s *ExtractionService) GetSessionStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := session.Key{Owner: stringField(req, "owner_id"), ID: stringField(req, "session_id")}
	snap, err := s.orch.Store().Snapshot(key)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out, err := snapshotStruct(snap)
	if err != nil {
		s.logger.Error("encode session snapshot", "session", key.String(), "error", err)
		return nil, common.ToStatus(err)
	}
	return out, nil
}

// snapshotStruct goes through JSON so the wire shape matches the snapshot's json tags.
func snapshotStruct(snap session.Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func stringsField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, common.InvalidArgumentErrorf("%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, common.InvalidArgumentErrorf("%s must be a list of strings", name)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}
