package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"colab-review-server/internal/domain"
	"colab-review-server/internal/realtime"
	"colab-review-server/internal/websocket"
	"colab-review-server/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type liveConnection struct {
	client  *websocket.Client
	handler *WorkspaceMessageHandler
	docs    *fakeDocumentService
	ws      *workspace.Workspace
}

func newLiveConnection(t *testing.T) *liveConnection {
	t.Helper()

	manager := websocket.NewManager(websocket.ManagerConfig{MaxConnPerUser: 5}, nil)
	client := websocket.NewClient("c1", "u1", nil, manager, nil)
	docs := newFakeDocumentService()
	session := &domain.Session{User: &domain.User{ID: "u1", Email: "ada@example.com"}}

	live := workspace.New(session,
		&fakeResolver{orgs: map[string]string{"u1": "eng"}},
		docs, &fakeRevisionService{}, realtime.NewHub(nil),
		&clientPublisher{client: client, logger: zap.NewNop()},
		workspace.Options{HighlightWindow: time.Minute},
	)
	t.Cleanup(live.Close)

	return &liveConnection{
		client:  client,
		handler: &WorkspaceMessageHandler{workspace: live, timeout: time.Second},
		docs:    docs,
		ws:      live,
	}
}

func (c *liveConnection) send(t *testing.T, msgType websocket.MessageType, payload interface{}) error {
	t.Helper()
	msg, err := websocket.NewMessage(msgType, payload)
	require.NoError(t, err)
	return c.handler.HandleWebSocketMessage(c.client, msg)
}

// drain returns every frame queued so far, decoded.
func (c *liveConnection) drain(t *testing.T) []websocket.Message {
	t.Helper()
	var out []websocket.Message
	for {
		select {
		case frame := <-c.client.Send:
			var msg websocket.Message
			require.NoError(t, json.Unmarshal(frame, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func lastOfType(msgs []websocket.Message, msgType websocket.MessageType) *websocket.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return &msgs[i]
		}
	}
	return nil
}

func TestWorkspaceMessageFlow(t *testing.T) {
	c := newLiveConnection(t)
	c.docs.Create(context.Background(), "eng", "Design", "v1")
	require.NoError(t, c.ws.Start(context.Background()))
	c.drain(t)

	require.NoError(t, c.send(t, websocket.TypeBeginEdit, nil))
	content := "v2"
	require.NoError(t, c.send(t, websocket.TypeEditBuffers, websocket.EditBuffersPayload{Content: &content}))
	require.NoError(t, c.send(t, websocket.TypeSaveDocument, nil))

	msgs := c.drain(t)
	notice := lastOfType(msgs, websocket.TypeNotice)
	require.NotNil(t, notice)
	var np websocket.NoticePayload
	require.NoError(t, notice.UnmarshalPayload(&np))
	assert.Equal(t, workspace.MsgDocumentSaved, np.Message)

	state := lastOfType(msgs, websocket.TypeWorkspaceState)
	require.NotNil(t, state)
	var view workspace.View
	require.NoError(t, state.UnmarshalPayload(&view))
	assert.Equal(t, "v2", view.Selected.Content)
	assert.False(t, view.Editor.Editing)

	require.NoError(t, c.send(t, websocket.TypeSetRevisionStatus, websocket.RevisionStatusPayload{Status: "approved"}))
	require.NoError(t, c.send(t, websocket.TypeSetRevisionComments, websocket.RevisionCommentsPayload{Comments: "ship it"}))
	require.NoError(t, c.send(t, websocket.TypeSubmitRevision, nil))

	state = lastOfType(c.drain(t), websocket.TypeWorkspaceState)
	require.NotNil(t, state)
	require.NoError(t, state.UnmarshalPayload(&view))
	require.Len(t, view.History, 1)
	assert.Equal(t, "Approved", view.History[0].StatusLabel)
	assert.True(t, view.History[0].IsNew)
	assert.Empty(t, view.RevisionForm.Comments)
}

func TestWorkspaceMessageMistakesAreNoticed(t *testing.T) {
	c := newLiveConnection(t)
	require.NoError(t, c.ws.Start(context.Background()))
	c.drain(t)

	tests := []struct {
		name    string
		msgType websocket.MessageType
		payload interface{}
		want    error
	}{
		{"unknown document", websocket.TypeSelectDocument, websocket.SelectDocumentPayload{DocumentID: "nope"}, workspace.ErrUnknownDocument},
		{"edit without selection", websocket.TypeBeginEdit, nil, workspace.ErrNoSelection},
		{"unknown type", websocket.MessageType("dance"), nil, errUnknownMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.send(t, tt.msgType, tt.payload)
			require.ErrorIs(t, err, tt.want)

			notice := lastOfType(c.drain(t), websocket.TypeNotice)
			require.NotNil(t, notice)
			var np websocket.NoticePayload
			require.NoError(t, notice.UnmarshalPayload(&np))
			assert.Equal(t, tt.want.Error(), np.Message)
		})
	}
}

func TestPingPong(t *testing.T) {
	c := newLiveConnection(t)
	require.NoError(t, c.send(t, websocket.TypePing, nil))

	msgs := c.drain(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, websocket.TypePong, msgs[0].Type)
}
