package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter by namespace prefix ("rt.", "message.", ...).
const (
	KindRealtimeMessage     = "rt.message"
	KindRealtimeMessageSent = "rt.message_sent"

	KindMessageAppended   = "message.appended"
	KindMessageAcked      = "message.acked"
	KindMessageSendFailed = "message.send_failed"
	KindThreadCleared     = "message.thread_cleared"

	KindConversationTouched = "conversation.touched"
	KindConversationDeleted = "conversation.deleted"

	KindStatusChanged = "session.status_changed"
	KindAuthFailed    = "session.auth_failed"
	KindLoggedIn      = "session.logged_in"
	KindLoggedOut     = "session.logged_out"
)
