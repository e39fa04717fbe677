package push

// Notification is one entry of the outbound push payload.
type Notification struct {
	NotificationType int    `json:"notification_type"`
	PostNumber       int    `json:"post_number"`
	TopicTitle       string `json:"topic_title"`
	TopicID          int64  `json:"topic_id"`
	Excerpt          string `json:"excerpt"`
	Username         string `json:"username"`
	URL              string `json:"url"`
	ClientID         string `json:"client_id"`
}

// Payload is the wire envelope POSTed to a push server.
type Payload struct {
	SecretKey     string         `json:"secret_key"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Notifications []Notification `json:"notifications"`
}

// Delivery is the task payload for one combined send: the destination
// push URL plus the envelope.
type Delivery struct {
	PushURL string  `json:"push_url"`
	Payload Payload `json:"payload"`
}

// TaskKind is the task queue routing key for push deliveries.
const TaskKind = "push.deliver"
