package consts

// EventType names a push-channel event.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
	EventConnected EventType = "connected"
)

// Error kinds carried by error events.
const (
	KindDownloadFailure = "DownloadFailure"
	KindCancelled       = "Cancelled"
)

// GreetingMessage is sent in the connected frame of every new subscription.
const GreetingMessage = "Connected to server"
