// Package dashboard reads notification metadata from the ANEF client dashboard.
package dashboard

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	tableClass      = "notification-table"
	unreadIconClass = "ui-icon-not-read"
	unreadMsgClass  = "ui-msg-not-read"
)

// Notifications summarizes the dashboard notification table.
type Notifications struct {
	HasUnread bool
	// FirstType is the text of the first unread notification, whitespace collapsed.
	FirstType string
}

// ExtractNotifications inspects the first table carrying the notification-table
// class. It never fails; markup without such a table yields the zero value.
func ExtractNotifications(markup string) Notifications {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Notifications{}
	}

	table := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasClassFold(s, tableClass, false)
	}).First()
	if table.Length() == 0 {
		return Notifications{}
	}

	inner, err := table.Html()
	if err != nil {
		return Notifications{}
	}
	lower := strings.ToLower(inner)
	if !strings.Contains(lower, unreadIconClass) && !strings.Contains(lower, unreadMsgClass) {
		return Notifications{}
	}

	result := Notifications{HasUnread: true}
	table.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasClassFold(s, unreadMsgClass, true) {
			return true
		}
		if text := collapseSpace(s.Text()); text != "" {
			result.FirstType = text
			return false
		}
		return true
	})
	return result
}

// hasClassFold reports whether the class attribute mentions name, ignoring case.
// With exact set, name must be a whole class token rather than a prefix.
func hasClassFold(s *goquery.Selection, name string, exact bool) bool {
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	class = strings.ToLower(class)
	if !exact {
		return strings.Contains(class, name)
	}
	for _, token := range strings.Fields(class) {
		if token == name {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
