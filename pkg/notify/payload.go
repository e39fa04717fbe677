package notify

import (
	"encoding/json"
	"fmt"
)

// Payload is the tagged union of per-type notification payloads. Each
// variant carries exactly the fields its type requires.
type Payload interface {
	PayloadType() Type
}

// MentionPayload backs mentioned notifications.
type MentionPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (MentionPayload) PayloadType() Type { return TypeMentioned }

// GroupMentionPayload backs group_mentioned notifications.
type GroupMentionPayload struct {
	DisplayUsername string `json:"display_username"`
	GroupName       string `json:"group_name"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (GroupMentionPayload) PayloadType() Type { return TypeGroupMentioned }

// ReplyPayload backs replied notifications. Count accumulates collapsed
// repeat replies for the "N replies" display.
type ReplyPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
	Count           int    `json:"count"`
}

func (ReplyPayload) PayloadType() Type { return TypeReplied }

// QuotePayload backs quoted notifications.
type QuotePayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (QuotePayload) PayloadType() Type { return TypeQuoted }

// EditPayload backs edited notifications. DisplayUsername is the editor.
type EditPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (EditPayload) PayloadType() Type { return TypeEdited }

// PrivateMessagePayload backs private_message notifications.
type PrivateMessagePayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
	Count           int    `json:"count"`
}

func (PrivateMessagePayload) PayloadType() Type { return TypePrivateMessage }

// PostedPayload backs posted notifications. Count accumulates collapsed
// repeat posts in the watched topic.
type PostedPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
	Count           int    `json:"count"`
}

func (PostedPayload) PayloadType() Type { return TypePosted }

// LinkPayload backs linked notifications.
type LinkPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (LinkPayload) PayloadType() Type { return TypeLinked }

// FirstPostPayload backs watching_first_post notifications.
type FirstPostPayload struct {
	DisplayUsername string `json:"display_username"`
	TopicTitle      string `json:"topic_title"`
	Excerpt         string `json:"excerpt"`
}

func (FirstPostPayload) PayloadType() Type { return TypeWatchingFirstPost }

// GroupMessageSummaryPayload backs group_message_summary notifications.
type GroupMessageSummaryPayload struct {
	GroupID    int64  `json:"group_id"`
	GroupName  string `json:"group_name"`
	InboxCount int    `json:"inbox_count"`
}

func (GroupMessageSummaryPayload) PayloadType() Type { return TypeGroupMessageSummary }

// CustomPayload backs custom notifications raised by plugins or external
// pipelines.
type CustomPayload struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (CustomPayload) PayloadType() Type { return TypeCustom }

// EncodePayload serializes a payload variant for persistence.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, ErrNilPayload
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.PayloadType(), err)
	}
	return data, nil
}

// DecodePayload deserializes a persisted payload into the variant keyed by
// the notification type.
func DecodePayload(t Type, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case TypeMentioned:
		var v MentionPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeGroupMentioned:
		var v GroupMentionPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeReplied:
		var v ReplyPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeQuoted:
		var v QuotePayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeEdited:
		var v EditPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypePrivateMessage:
		var v PrivateMessagePayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypePosted:
		var v PostedPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeLinked:
		var v LinkPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeWatchingFirstPost:
		var v FirstPostPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeGroupMessageSummary:
		var v GroupMessageSummaryPayload
		err = json.Unmarshal(data, &v)
		p = v
	case TypeCustom:
		var v CustomPayload
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}
