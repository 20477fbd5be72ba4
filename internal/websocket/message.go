package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

// Client to server.
const (
	TypeSelectDocument      MessageType = "select_document"
	TypeBeginEdit           MessageType = "begin_edit"
	TypeEditBuffers         MessageType = "edit_buffers"
	TypeCancelEdit          MessageType = "cancel_edit"
	TypeSaveDocument        MessageType = "save_document"
	TypeCreateDocument      MessageType = "create_document"
	TypeSetRevisionStatus   MessageType = "set_revision_status"
	TypeSetRevisionComments MessageType = "set_revision_comments"
	TypeSubmitRevision      MessageType = "submit_revision"
	TypeRefresh             MessageType = "refresh"
	TypePing                MessageType = "ping"
)

// Server to client.
const (
	TypeWorkspaceState MessageType = "workspace_state"
	TypeNotice         MessageType = "notice"
	TypePong           MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SelectDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// EditBuffersPayload carries the buffers being changed; absent fields are left
// as they are.
type EditBuffersPayload struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type RevisionStatusPayload struct {
	Status string `json:"status"`
}

type RevisionCommentsPayload struct {
	Comments string `json:"comments"`
}

type NoticePayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
