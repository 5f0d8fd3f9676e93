package registry

// Message type discriminators on the live-reload wire protocol.
const (
	MessageTypeReload = "reload"
	MessageTypeError  = "error"
)

// ReloadMessage tells connected pages to refresh themselves. Path is
// the changed file relative to the served root; a null path means the
// change could not be attributed to one file and the page should
// reload unconditionally.
type ReloadMessage struct {
	Type string  `json:"type"`
	Path *string `json:"path"`
}

// NewReloadMessage builds a reload notification. An empty path is sent
// as null.
func NewReloadMessage(path string) ReloadMessage {
	msg := ReloadMessage{Type: MessageTypeReload}
	if path != "" {
		msg.Path = &path
	}
	return msg
}

// ErrorMessage reports a server-side problem to connected pages.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Message: message}
}
