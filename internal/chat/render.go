package chat

import (
	"fmt"

	"chat-widget/internal/store"
	"chat-widget/internal/types"
)

// FormatIntent renders an annotation as "Intent: greeting (92.0%)".
func FormatIntent(in *types.Intent) string {
	if in == nil {
		return ""
	}
	return fmt.Sprintf("Intent: %s (%.1f%%)", in.Type, in.Confidence*100)
}

// Avatar is the short badge shown next to a message.
func Avatar(role store.Role) string {
	if role == store.RoleUser {
		return "U"
	}
	return "AI"
}

// FormatMessage renders a message as plain text, intent on its own line.
func FormatMessage(m store.Message) string {
	s := fmt.Sprintf("[%s] %s", Avatar(m.Role), m.Content)
	if m.Role == store.RoleAssistant && m.Intent != nil {
		s += "\n     " + FormatIntent(m.Intent)
	}
	return s
}
