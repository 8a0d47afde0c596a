// metrics.go - In-process counters exposed at /metrics.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Metrics holds application counters. Access is mutex-guarded because
// every request touches them concurrently.
type Metrics struct {
	mu sync.RWMutex

	uploadsTotal      int64
	uploadBytesTotal  int64
	uploadErrorsTotal int64

	downloadsTotal      int64
	downloadBytesTotal  int64
	downloadErrorsTotal int64

	loginAttemptsTotal int64
	loginSuccessTotal  int64
	loginFailuresTotal int64

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

func (m *Metrics) RecordDownloadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadErrorsTotal++
}

func (m *Metrics) RecordLoginAttempt(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginAttemptsTotal++
	if success {
		m.loginSuccessTotal++
	} else {
		m.loginFailuresTotal++
	}
}

func (m *Metrics) RecordRequest(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	switch {
	case status >= 500:
		m.requestErrors5xx++
	case status >= 400:
		m.requestErrors4xx++
	}
}

// Snapshot returns a copy of all counters for rendering.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int64{
		"uploads_total":         m.uploadsTotal,
		"upload_bytes_total":    m.uploadBytesTotal,
		"upload_errors_total":   m.uploadErrorsTotal,
		"downloads_total":       m.downloadsTotal,
		"download_bytes_total":  m.downloadBytesTotal,
		"download_errors_total": m.downloadErrorsTotal,
		"login_attempts_total":  m.loginAttemptsTotal,
		"login_success_total":   m.loginSuccessTotal,
		"login_failures_total":  m.loginFailuresTotal,
		"requests_total":        m.requestsTotal,
		"request_errors_4xx":    m.requestErrors4xx,
		"request_errors_5xx":    m.requestErrors5xx,
	}
}

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetMetrics().Snapshot())
	})
}
