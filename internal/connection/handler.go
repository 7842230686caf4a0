package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-neighbor/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/auth"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/connection/entity"
	"github.com/ovaphlow/pitchfork/service-neighbor/internal/metrics"
)

// maxBodyBytes caps request payloads; every body here is a few short fields.
const maxBodyBytes = 1 << 16

// Handler exposes the connection type registry and the request workflow over
// HTTP. Workflow calls that lose an optimistic-lock race are retried.
type Handler struct {
	svc      *Service
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	attempts uint
}

func NewHandler(svc *Service, logger *zap.SugaredLogger, m *metrics.Metrics, attempts uint) *Handler {
	if attempts == 0 {
		attempts = 3
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger, metrics: m, attempts: attempts}
}

// ListTypes returns the full registry.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	apperr.WriteJSON(w, http.StatusOK, Types())
}

// GetType returns one registry entry.
func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	t := entity.Type(r.PathValue("type"))
	info, ok := GetTypeInfo(t)
	if !ok {
		apperr.WriteError(w, apperr.NotFound("connection type", string(t)))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, info)
}

// UpgradeOptions lists the types reachable from {type}; "none" means no
// connection yet.
func (h *Handler) UpgradeOptions(w http.ResponseWriter, r *http.Request) {
	t := entity.Type(r.PathValue("type"))
	if t == entity.Type(entity.StatusNone) {
		t = ""
	} else if !ValidType(t) {
		apperr.WriteError(w, apperr.NotFound("connection type", string(t)))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, UpgradeOptions(t))
}

// SendRequestBody is the payload of POST /connections.
type SendRequestBody struct {
	ToUserID       string      `json:"to_user_id"`
	ConnectionType entity.Type `json:"connection_type"`
}

// UpgradeBody is the payload of POST /connections/{id}/upgrade.
type UpgradeBody struct {
	ConnectionType entity.Type `json:"connection_type"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SendRequestBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid send payload", "err", err)
		apperr.WriteError(w, apperr.Validation("invalid payload"))
		return
	}
	h.transition(w, r, ActionSend, http.StatusCreated, func(ctx context.Context) (*entity.Connection, error) {
		return h.svc.SendRequest(ctx, actor, req.ToUserID, req.ConnectionType)
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, ActionAccept, h.svc.Accept)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, ActionDecline, h.svc.Decline)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, ActionDisconnect, h.svc.Disconnect)
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, ActionBlock, h.svc.BlockConnection)
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, ActionUnblock, h.svc.Unblock)
}

func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req UpgradeBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid upgrade payload", "err", err)
		apperr.WriteError(w, apperr.Validation("invalid payload"))
		return
	}
	id := r.PathValue("id")
	h.transition(w, r, ActionUpgrade, http.StatusOK, func(ctx context.Context) (*entity.Connection, error) {
		return h.svc.Upgrade(ctx, actor, id, req.ConnectionType)
	})
}

// BlockUser handles POST /users/{id}/block.
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	target := r.PathValue("id")
	h.transition(w, r, ActionBlock, http.StatusOK, func(ctx context.Context) (*entity.Connection, error) {
		return h.svc.BlockUser(ctx, actor, target)
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		h.fail(w, "get connection failed", err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, c)
}

// List handles GET /connections?status=a,b&type=c.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var f entity.Filter
	for _, s := range splitList(r.URL.Query().Get("status")) {
		f.Statuses = append(f.Statuses, entity.Status(s))
	}
	for _, t := range splitList(r.URL.Query().Get("type")) {
		f.Types = append(f.Types, entity.Type(t))
	}
	list, err := h.svc.List(r.Context(), actor, f)
	if err != nil {
		h.fail(w, "list connections failed", err)
		return
	}
	if list == nil {
		list = []*entity.Connection{}
	}
	apperr.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) byID(w http.ResponseWriter, r *http.Request, action string,
	fn func(ctx context.Context, actor, id string) (*entity.Connection, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	h.transition(w, r, action, http.StatusOK, func(ctx context.Context) (*entity.Connection, error) {
		return fn(ctx, actor, id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, status int,
	op func(ctx context.Context) (*entity.Connection, error)) {
	c, err := h.withRetry(r.Context(), action, op)
	h.metrics.RecordTransition(action, apperr.Kind(err))
	if err != nil {
		h.fail(w, action+" failed", err)
		return
	}
	apperr.WriteJSON(w, status, c)
}

// withRetry re-runs op while it fails with a concurrency conflict. Each run
// re-reads the record, so the state precondition is checked again.
func (h *Handler) withRetry(ctx context.Context, action string, op func(ctx context.Context) (*entity.Connection, error)) (*entity.Connection, error) {
	var (
		out  *entity.Connection
		last error
	)
	err := retry.Do(
		func() error {
			out, last = op(ctx)
			return last
		},
		retry.Context(ctx),
		retry.Attempts(h.attempts),
		retry.Delay(20*time.Millisecond),
		retry.MaxJitter(20*time.Millisecond),
		retry.RetryIf(apperr.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			h.metrics.RecordConflictRetry(action)
			h.logger.Debugw("retrying after conflict", "action", action, "attempt", n+1, "err", err)
		}),
	)
	if last != nil {
		return nil, last
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		apperr.WriteJSON(w, http.StatusUnauthorized, apperr.ErrorBody{Error: "unauthenticated"})
	}
	return actor, ok
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Warnw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	apperr.WriteError(w, err)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
