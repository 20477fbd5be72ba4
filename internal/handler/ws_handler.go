package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"colab-review-server/internal/config"
	"colab-review-server/internal/domain"
	"colab-review-server/internal/middleware"
	"colab-review-server/internal/service"
	"colab-review-server/internal/websocket"
	"colab-review-server/internal/workspace"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const operationTimeout = 30 * time.Second

// WorkspaceDeps is what every live workspace is built from.
type WorkspaceDeps struct {
	Resolver        workspace.OrganizationResolver
	Documents       workspace.DocumentStore
	Revisions       workspace.RevisionStore
	Changes         workspace.ChangeSource
	HighlightWindow time.Duration
}

type WebSocketHandler struct {
	manager  *websocket.Manager
	sessions middleware.SessionLoader
	deps     WorkspaceDeps
	upgrader ws.Upgrader
	logger   *zap.Logger
}

func NewWebSocketHandler(
	manager *websocket.Manager,
	sessions middleware.SessionLoader,
	deps WorkspaceDeps,
	cfg config.WebSocketConfig,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		sessions: sessions,
		deps:     deps,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.CurrentSession(r.Context(), token)
	if err != nil || !session.Active() {
		h.logger.Debug("websocket session rejected", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", session.UserID()), zap.Error(err))
		return
	}

	client := websocket.NewClient(uuid.New().String(), session.UserID(), conn, h.manager, nil)
	logger := h.logger.With(zap.String("client_id", client.ID))

	live := workspace.New(session, h.deps.Resolver, h.deps.Documents, h.deps.Revisions, h.deps.Changes,
		&clientPublisher{client: client, logger: logger},
		workspace.Options{HighlightWindow: h.deps.HighlightWindow, Logger: logger},
	)
	client.Handler = &WorkspaceMessageHandler{workspace: live, timeout: operationTimeout}
	client.OnClose(live.Close)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		if err := live.Start(ctx); err != nil {
			logger.Warn("workspace start failed", zap.Error(err))
		}
	}()
}

// clientPublisher forwards workspace snapshots and notices to one connection.
type clientPublisher struct {
	client *websocket.Client
	logger *zap.Logger
}

func (p *clientPublisher) PublishState(view *workspace.View) {
	p.send(websocket.TypeWorkspaceState, view)
}

func (p *clientPublisher) PublishNotice(notice workspace.Notice) {
	p.send(websocket.TypeNotice, websocket.NoticePayload{
		Level:   string(notice.Level),
		Message: notice.Message,
	})
}

func (p *clientPublisher) send(msgType websocket.MessageType, payload interface{}) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		p.logger.Error("failed to encode message", zap.String("type", string(msgType)), zap.Error(err))
		return
	}
	if err := p.client.SendMessage(msg); err != nil {
		p.logger.Debug("message dropped", zap.String("type", string(msgType)), zap.Error(err))
	}
}

// WorkspaceMessageHandler applies client messages to one live workspace.
type WorkspaceMessageHandler struct {
	workspace *workspace.Workspace
	timeout   time.Duration
}

func (h *WorkspaceMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.apply(ctx, client, msg)
	if err != nil && isClientMistake(err) {
		notice, _ := websocket.NewMessage(websocket.TypeNotice, websocket.NoticePayload{
			Level:   string(workspace.NoticeError),
			Message: err.Error(),
		})
		client.SendMessage(notice)
	}
	return err
}

func (h *WorkspaceMessageHandler) apply(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSelectDocument:
		var payload websocket.SelectDocumentPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return errBadPayload
		}
		return h.workspace.Select(ctx, payload.DocumentID)

	case websocket.TypeBeginEdit:
		return h.workspace.BeginEdit()

	case websocket.TypeEditBuffers:
		var payload websocket.EditBuffersPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return errBadPayload
		}
		return h.workspace.SetBuffers(payload.Title, payload.Content)

	case websocket.TypeCancelEdit:
		return h.workspace.CancelEdit()

	case websocket.TypeSaveDocument:
		return h.workspace.Save(ctx)

	case websocket.TypeCreateDocument:
		return h.workspace.CreateDocument(ctx)

	case websocket.TypeSetRevisionStatus:
		var payload websocket.RevisionStatusPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return errBadPayload
		}
		return h.workspace.SetRevisionStatus(domain.RevisionStatus(payload.Status))

	case websocket.TypeSetRevisionComments:
		var payload websocket.RevisionCommentsPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return errBadPayload
		}
		h.workspace.SetRevisionComments(payload.Comments)
		return nil

	case websocket.TypeSubmitRevision:
		return h.workspace.SubmitRevision(ctx)

	case websocket.TypeRefresh:
		if err := h.workspace.ListDocuments(ctx); err != nil {
			return err
		}
		if err := h.workspace.RefreshHistory(ctx); err != nil && !errors.Is(err, workspace.ErrNoSelection) {
			return err
		}
		h.workspace.Publish()
		return nil

	case websocket.TypePing:
		pong, err := websocket.NewMessage(websocket.TypePong, nil)
		if err != nil {
			return err
		}
		return client.SendMessage(pong)

	default:
		return errUnknownMessage
	}
}

var (
	errBadPayload     = errors.New("malformed message payload")
	errUnknownMessage = errors.New("unknown message type")
)

// isClientMistake reports errors caused by the request itself. Store failures
// are already reported by the workspace.
func isClientMistake(err error) bool {
	for _, target := range []error{
		errBadPayload,
		errUnknownMessage,
		workspace.ErrNoSelection,
		workspace.ErrUnknownDocument,
		workspace.ErrNoOrganization,
		workspace.ErrSubmitInProgress,
		service.ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
