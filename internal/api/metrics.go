package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/version"
)

var metricsState = &MetricsState{}

// MetricsState holds the counters served by /metrics.
type MetricsState struct {
	mu           sync.RWMutex
	startTime    time.Time
	instanceID   string
	loadsOK      int64
	loadsFailed  int64
	elements     int64
	lastLoadTime int64 // unix seconds, -1 if none
}

// InitMetrics resets the counters and starts the uptime clock.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.loadsOK = 0
	metricsState.loadsFailed = 0
	metricsState.elements = 0
	metricsState.lastLoadTime = -1
}

// SetInstanceID sets the instance label of metrics and alerts.
func SetInstanceID(id string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.instanceID = id
}

// GetInstanceID returns the instance label.
func GetInstanceID() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.instanceID
}

// RecordLoad counts one finished load and the scene elements it emitted.
func RecordLoad(ok bool, elements int) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	if ok {
		metricsState.loadsOK++
	} else {
		metricsState.loadsFailed++
	}
	metricsState.elements += int64(elements)
	metricsState.lastLoadTime = time.Now().Unix()
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler writes Prometheus text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	instanceID := metricsState.instanceID
	loadsOK := metricsState.loadsOK
	loadsFailed := metricsState.loadsFailed
	elements := metricsState.elements
	lastLoad := metricsState.lastLoadTime
	metricsState.mu.RUnlock()

	readiness.mu.RLock()
	libraryReady := readiness.libraryReady
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	labels := fmt.Sprintf(`instance="%s",host="%s",version="%s"`, instanceID, hostname, version.Version)
	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	writeMetric("scenebridge_uptime_seconds", "gauge",
		"Number of seconds since the bridge started", time.Since(startTime).Seconds(), labels)
	writeMetric("scenebridge_library_ready", "gauge",
		"Whether the FBX loader is initialized (1) or not (0)", boolGauge(libraryReady), labels)

	fmt.Fprintf(w, "# HELP scenebridge_loads_total Number of finished loads by result\n")
	fmt.Fprintf(w, "# TYPE scenebridge_loads_total counter\n")
	fmt.Fprintf(w, "scenebridge_loads_total{%s,result=\"ok\"} %d\n", labels, loadsOK)
	fmt.Fprintf(w, "scenebridge_loads_total{%s,result=\"failed\"} %d\n", labels, loadsFailed)

	writeMetric("scenebridge_elements_emitted_total", "counter",
		"Number of transforms, cameras, lights and meshes emitted", elements, labels)
	writeMetric("scenebridge_last_load_timestamp", "gauge",
		"Unix timestamp of the last finished load (-1 if none)", lastLoad, labels)
	writeMetric("scenebridge_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)
	writeMetric("scenebridge_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)
	writeMetric("scenebridge_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected), labels)
	writeMetric("scenebridge_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
	writeMetric("scenebridge_ws_dropped_events_total", "counter",
		"Events skipped for WebSocket clients that fell behind", events.DroppedCount(), labels)
}
