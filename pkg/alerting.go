package pkg

import (
	"fmt"
	"os"
	"time"

	"github.com/feederco/really-simple-snapshot-backup/pkg/alerting"
)

// AlertingConfig sub-config type for alerting related
type AlertingConfig struct {
	Slack *alerting.SlackConfig `json:"slack" yaml:"slack"`
}

// AlertError alerts an error to the system administrator
func AlertError(alertingConfig *AlertingConfig, message string, err error) {
	hostname, _ := os.Hostname()

	fullMessage := fmt.Sprintf("[*BACKUP FAILURE*] [%s] [host: `%s`] `%s` with error: `%s`", time.Now().Format(time.RFC3339), hostname, message, err)

	if alertingConfig != nil && alertingConfig.Slack != nil {
		slackErr := WithRetry("slack", func() error {
			return alerting.SlackLog(fullMessage, alertingConfig.Slack)
		})

		if slackErr != nil {
			ErrorLog.Warn("Could not alert to Slack.", "err", slackErr)
		}
	}

	// Always print to error log
	ErrorLog.Error(message, "err", err)
}

// AlertMessage simply alerts a message to the correct channels
func AlertMessage(alertingConfig *AlertingConfig, message string) {
	hostname, _ := os.Hostname()

	fullMessage := fmt.Sprintf("[backup message] [%s] [host: %s] %s", time.Now().Format(time.RFC3339), hostname, message)

	if alertingConfig != nil && alertingConfig.Slack != nil {
		err := WithRetry("slack", func() error {
			return alerting.SlackLog(fullMessage, alertingConfig.Slack)
		})

		if err != nil {
			Log.Warn("Could not alert to Slack.", "err", err)
		}
	}

	Log.Info(message)
}
