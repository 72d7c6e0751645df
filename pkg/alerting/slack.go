package alerting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const slackDefaultUsername = "BackupsBot"
const slackDefaultIconEmoji = ":card_file_box:"

var slackClient = &http.Client{Timeout: 10 * time.Second}

// SlackConfig contains config values for slack config
type SlackConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	Channel    string `json:"channel" yaml:"channel"`
	Username   string `json:"username" yaml:"username"`
	IconEmoji  string `json:"icon_emoji" yaml:"icon_emoji"`
}

type slackWebhook struct {
	Username  string `json:"username"`
	Channel   string `json:"channel,omitempty"`
	Text      string `json:"text"`
	IconEmoji string `json:"icon_emoji"`
}

// SlackLog log a message to my slack
func SlackLog(message string, config *SlackConfig) error {
	username := config.Username
	if username == "" {
		username = slackDefaultUsername
	}

	iconEmoji := config.IconEmoji
	if iconEmoji == "" {
		iconEmoji = slackDefaultIconEmoji
	}

	data := slackWebhook{
		Username:  username,
		Channel:   config.Channel,
		Text:      message,
		IconEmoji: iconEmoji,
	}

	payloadBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}

	body := bytes.NewReader(payloadBytes)
	resp, err := slackClient.Post(config.WebhookURL, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook responded with %s", resp.Status)
	}

	return nil
}
