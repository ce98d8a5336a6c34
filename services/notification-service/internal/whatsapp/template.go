// Package whatsapp builds and sends WhatsApp Cloud API template messages.
package whatsapp

import (
	"fmt"
	"net/url"
	"time"
)

const (
	MeetingApprovedTemplate = "meeting_approved"
	TemplateLanguage        = "he"
)

type Message struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         Template `json:"template"`
}

type Template struct {
	Name       string      `json:"name"`
	Language   Language    `json:"language"`
	Components []Component `json:"components"`
}

type Language struct {
	Code string `json:"code"`
}

type Component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MeetingApproved is what the meeting_approved template needs.
type MeetingApproved struct {
	PhoneNumber     string
	CustomerName    string
	BusinessName    string
	BusinessAddress string
	Start           time.Time
}

// BuildMeetingApproved renders the template with the start shown in loc.
func BuildMeetingApproved(m MeetingApproved, loc *time.Location) Message {
	start := m.Start.In(loc)
	return Message{
		MessagingProduct: "whatsapp",
		To:               m.PhoneNumber,
		Type:             "template",
		Template: Template{
			Name:     MeetingApprovedTemplate,
			Language: Language{Code: TemplateLanguage},
			Components: []Component{
				{
					Type: "body",
					Parameters: []Parameter{
						text(m.CustomerName),
						text(m.BusinessName),
						text(HebrewLongDate(start)),
						text(start.Format("15:04")),
					},
				},
				{
					Type:       "button",
					SubType:    "url",
					Index:      "0",
					Parameters: []Parameter{text(MapsQuery(m.BusinessAddress))},
				},
			},
		},
	}
}

func text(s string) Parameter {
	return Parameter{Type: "text", Text: s}
}

// MapsQuery is the suffix appended to the template's maps URL button.
func MapsQuery(address string) string {
	return "/?api=1&query=" + url.QueryEscape(address)
}

var hebrewWeekdays = [...]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

var hebrewMonths = [...]string{
	"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני",
	"יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר",
}

// HebrewLongDate formats t like "יום שלישי, 5 במרץ 2024".
func HebrewLongDate(t time.Time) string {
	return fmt.Sprintf("יום %s, %d ב%s %d", hebrewWeekdays[t.Weekday()], t.Day(), hebrewMonths[t.Month()-1], t.Year())
}
