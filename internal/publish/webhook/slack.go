package webhook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/isseis/go-ezerr/ezerr"
)

// SlackMessage represents the structure of a Slack webhook message
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack attachment
type SlackAttachment struct {
	Color  string                 `json:"color,omitempty"`
	Fields []SlackAttachmentField `json:"fields,omitempty"`
	Footer string                 `json:"footer,omitempty"`
}

// SlackAttachmentField represents a field within a Slack attachment
type SlackAttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

const colorDanger = "danger"

func slackMessage(ev ezerr.Event) SlackMessage {
	rec := ev.Record
	mainThread := "No"
	if rec.MainThread {
		mainThread = "Yes"
	}
	return SlackMessage{
		Text: fmt.Sprintf(":rotating_light: %s error %s: %s", rec.Domain, rec.Code, rec.Detail),
		Attachments: []SlackAttachment{{
			Color: colorDanger,
			Fields: []SlackAttachmentField{
				{Title: "Detail", Value: rec.Detail},
				{Title: "Description", Value: rec.Description},
				{Title: "Method name", Value: rec.Function},
				{Title: "File name", Value: rec.File, Short: true},
				{Title: "Line number", Value: strconv.Itoa(rec.Line), Short: true},
				{Title: "Main thread", Value: mainThread, Short: true},
				{Title: "Error domain", Value: rec.Domain, Short: true},
				{Title: "Error code", Value: rec.Code, Short: true},
				{Title: "Time", Value: rec.Timestamp.Format(time.RFC3339), Short: true},
			},
			Footer: ev.ID,
		}},
	}
}
