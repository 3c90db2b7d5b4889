// Package status derives display views from a chat message log.
package status

import (
	"regexp"

	"github.com/yousefmohseen/chatroom/internal/proto"
)

// noticePattern extracts the affected user from prose notices such as
// "alice joined the chat" or "carol deleted their messages (3 removed)".
// The first space-delimited verb wins.
var noticePattern = regexp.MustCompile(`(?i)^(.+?)\s+(joined|left|deleted)\b`)

// View is the derived view over a message log.
type View struct {
	// Messages are the participant messages in log order.
	Messages []proto.Message
	// Statuses holds the latest notice per affected user, ordered by first appearance of the user.
	Statuses []proto.Message
	// Announcements are service notices that do not concern a single user.
	Announcements []proto.Message
}

// Reduce partitions msgs into participant messages, per-user statuses and announcements.
// It is recomputed from scratch on every call.
func Reduce(msgs []proto.Message) View {
	var view View
	index := make(map[string]int)

	for _, m := range msgs {
		if !m.IsSystem() {
			view.Messages = append(view.Messages, m)
			continue
		}

		user, ok := AffectedUser(m)
		if !ok {
			view.Announcements = append(view.Announcements, m)
			continue
		}
		if i, seen := index[user]; seen {
			view.Statuses[i] = m
			continue
		}
		index[user] = len(view.Statuses)
		view.Statuses = append(view.Statuses, m)
	}

	return view
}

// AffectedUser returns the user a service notice is about.
// Structured notices win over text parsing.
func AffectedUser(m proto.Message) (string, bool) {
	if m.Notice != nil && m.Notice.User != "" {
		return m.Notice.User, true
	}
	match := noticePattern.FindStringSubmatch(m.Text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
