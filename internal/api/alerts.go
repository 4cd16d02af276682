package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertLibraryUnusable     = "library_unusable"
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
)

// AlertPayload is the JSON body posted to the webhook.
type AlertPayload struct {
	Instance  string                 `json:"instance"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// connWatch turns a stream of connected/disconnected observations into a
// single alert once the outage has lasted delay, and a recovery notice
// after that.
type connWatch struct {
	event    string
	severity string
	message  string
	restored string
	delay    time.Duration

	down      time.Time
	alertSent bool
}

func (c *connWatch) observe(connected bool, now time.Time) {
	if connected {
		if c.alertSent {
			go SendAlert(c.event, SeverityInfo, c.restored, map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		c.down = time.Time{}
		c.alertSent = false
		return
	}

	if c.down.IsZero() {
		c.down = now
	}
	if d := now.Sub(c.down); !c.alertSent && d >= c.delay {
		c.alertSent = true
		go SendAlert(c.event, c.severity, c.message, map[string]interface{}{
			"disconnected_since":   c.down.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(d.Seconds()),
		})
	}
}

var (
	alertMu     sync.Mutex
	webhookURL  string
	alertsReady bool
)

var mqttWatch = &connWatch{
	event:    AlertMQTTDisconnected,
	severity: SeverityWarning,
	message:  "MQTT broker disconnected",
	restored: "MQTT connection restored",
	delay:    30 * time.Second,
}

var postgresWatch = &connWatch{
	event:    AlertPostgresUnavailable,
	severity: SeverityCritical,
	message:  "PostgreSQL unavailable",
	restored: "PostgreSQL connection restored",
	delay:    5 * time.Second,
}

// InitAlerts reads SCENEBRIDGE_ALERT_WEBHOOK_URL and the optional
// SCENEBRIDGE_MQTT_ALERT_DELAY and SCENEBRIDGE_POSTGRES_ALERT_DELAY.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	webhookURL = os.Getenv("SCENEBRIDGE_ALERT_WEBHOOK_URL")
	if d, err := time.ParseDuration(os.Getenv("SCENEBRIDGE_MQTT_ALERT_DELAY")); err == nil {
		mqttWatch.delay = d
	}
	if d, err := time.ParseDuration(os.Getenv("SCENEBRIDGE_POSTGRES_ALERT_DELAY")); err == nil {
		postgresWatch.delay = d
	}
	mqttWatch.down, mqttWatch.alertSent = time.Time{}, false
	postgresWatch.down, postgresWatch.alertSent = time.Time{}, false
	alertsReady = true

	if webhookURL != "" {
		log.Printf("Alerts enabled: webhook URL configured (mqtt_delay=%s, pg_delay=%s)",
			mqttWatch.delay, postgresWatch.delay)
	}
}

// GetAlertWebhookURL returns the configured webhook URL.
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return webhookURL
}

// SendAlert posts an alert to the webhook in the background, or logs it
// when no webhook is configured.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	url := webhookURL
	alertMu.Unlock()

	if url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", event, severity, message, details)
		return
	}

	instance := GetInstanceID()
	if instance == "" {
		instance = "unknown"
	}
	go sendWebhook(url, AlertPayload{
		Instance:  instance,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	})
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

// CheckAndAlertMQTT records the broker state and alerts on long outages.
func CheckAndAlertMQTT(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if alertsReady {
		mqttWatch.observe(connected, time.Now())
	}
}

// CheckAndAlertPostgres records the database state and alerts on outages.
func CheckAndAlertPostgres(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if alertsReady {
		postgresWatch.observe(connected, time.Now())
	}
}

// StartAlertMonitor checks the required connections every interval until
// stop is closed. Optional dependencies never alert.
func StartAlertMonitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			readiness.mu.RLock()
			mqttOK := readiness.mqttConnected || readiness.mqttOptional
			postgresOK := readiness.postgresConnected || readiness.postgresOptional
			readiness.mu.RUnlock()

			CheckAndAlertMQTT(mqttOK)
			CheckAndAlertPostgres(postgresOK)
		}
	}()
}
