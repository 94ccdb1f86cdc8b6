package instrumentation

import (
	"errors"
	"time"

	ce "github.com/content-services/content-uploads-backend/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	NameSpace                = "content_uploads"
	HttpStatusHistogram      = "http_status_histogram"
	ChunksReceivedTotal      = "chunks_received_total"
	ChunkBytesReceivedTotal  = "chunk_bytes_received_total"
	UploadsCompletedTotal    = "uploads_completed_total"
	UploadsRejectedTotal     = "uploads_rejected_total"
	UploadedFileBytes        = "uploaded_file_bytes"
	NotificationStatus       = "notification_status"
	ActiveUploadSessions     = "active_upload_sessions"
	ActiveChunkUploads       = "active_chunk_uploads"
	SweeperDeletedTotal      = "sweeper_deleted_total"
	SweeperErrorsTotal       = "sweeper_errors_total"
	SweeperLastRunTimestamp  = "sweeper_last_run_timestamp_seconds"
	UploadPathChunk          = "chunk"
	UploadPathResumable      = "resumable"
	SweepKindChunkDirs       = "chunk_dirs"
	SweepKindTempFiles       = "temp_files"
	SweepKindSessions        = "sessions"
	notificationStateSuccess = "success"
	notificationStateFailed  = "failed"
)

type Metrics struct {
	HttpStatusHistogram prometheus.HistogramVec

	ChunksReceivedTotal     prometheus.Counter
	ChunkBytesReceivedTotal prometheus.Counter
	UploadsCompletedTotal   prometheus.CounterVec
	UploadsRejectedTotal    prometheus.CounterVec
	UploadedFileBytes       prometheus.HistogramVec
	NotificationStatus      prometheus.CounterVec

	// Custom metrics
	ActiveUploadSessions prometheus.Gauge
	ActiveChunkUploads   prometheus.Gauge

	SweeperDeletedTotal     prometheus.CounterVec
	SweeperErrorsTotal      prometheus.CounterVec
	SweeperLastRunTimestamp prometheus.Gauge

	reg *prometheus.Registry
}

// See: https://prometheus.io/docs/tutorials/understanding_metric_types/#types-of-metrics
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		panic("reg cannot be nil")
	}
	metrics := &Metrics{
		reg: reg,
		HttpStatusHistogram: *promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NameSpace,
			Name:      HttpStatusHistogram,
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status", "method", "path"}),
		ChunksReceivedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      ChunksReceivedTotal,
			Help:      "Number of chunks stored",
		}),
		ChunkBytesReceivedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      ChunkBytesReceivedTotal,
			Help:      "Bytes of chunks stored",
		}),
		UploadsCompletedTotal: *promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      UploadsCompletedTotal,
			Help:      "Number of uploads assembled and recorded",
		}, []string{"path"}),
		UploadsRejectedTotal: *promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      UploadsRejectedTotal,
			Help:      "Number of uploads that failed to assemble or validate",
		}, []string{"path", "reason"}),
		UploadedFileBytes: *promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NameSpace,
			Name:      UploadedFileBytes,
			Help:      "Size of stored files",
			Buckets:   prometheus.ExponentialBuckets(1024, 8, 9),
		}, []string{"path"}),
		NotificationStatus: *promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      NotificationStatus,
			Help:      "Result of file uploaded notifications",
		}, []string{"state"}),
		ActiveUploadSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: NameSpace,
			Name:      ActiveUploadSessions,
			Help:      "Number of resumable upload sessions in progress",
		}),
		ActiveChunkUploads: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: NameSpace,
			Name:      ActiveChunkUploads,
			Help:      "Number of chunk upload directories",
		}),
		SweeperDeletedTotal: *promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      SweeperDeletedTotal,
			Help:      "Number of expired items removed by the sweeper",
		}, []string{"kind"}),
		SweeperErrorsTotal: *promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: NameSpace,
			Name:      SweeperErrorsTotal,
			Help:      "Number of sweeper failures",
		}, []string{"kind"}),
		SweeperLastRunTimestamp: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: NameSpace,
			Name:      SweeperLastRunTimestamp,
			Help:      "Unix time of the last sweeper pass",
		}),
	}

	reg.MustRegister(collectors.NewBuildInfoCollector())

	return metrics
}

func (m *Metrics) RecordChunkReceived(size int64) {
	if m == nil {
		return
	}
	m.ChunksReceivedTotal.Inc()
	m.ChunkBytesReceivedTotal.Add(float64(size))
}

func (m *Metrics) RecordUploadCompleted(path string, size int64) {
	if m == nil {
		return
	}
	m.UploadsCompletedTotal.With(prometheus.Labels{"path": path}).Inc()
	m.UploadedFileBytes.With(prometheus.Labels{"path": path}).Observe(float64(size))
}

// RecordUploadRejected counts a failed completion, labelled by the kind of
// upload error
func (m *Metrics) RecordUploadRejected(path string, err error) {
	if m == nil || err == nil {
		return
	}
	m.UploadsRejectedTotal.With(prometheus.Labels{"path": path, "reason": RejectReason(err)}).Inc()
}

func RejectReason(err error) string {
	var uploadErr *ce.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Kind.String()
	}
	return "error"
}

func (m *Metrics) RecordNotificationStatus(success bool) {
	status := notificationStateFailed
	if success {
		status = notificationStateSuccess
	}
	if m != nil {
		m.NotificationStatus.With(prometheus.Labels{"state": status}).Inc()
	}
}

func (m *Metrics) RecordSweep(kind string, deleted int, failures int) {
	if m == nil {
		return
	}
	m.SweeperDeletedTotal.With(prometheus.Labels{"kind": kind}).Add(float64(deleted))
	m.SweeperErrorsTotal.With(prometheus.Labels{"kind": kind}).Add(float64(failures))
}

func (m *Metrics) RecordSweepRun(at time.Time) {
	if m != nil {
		m.SweeperLastRunTimestamp.Set(float64(at.Unix()))
	}
}

func (m Metrics) Registry() *prometheus.Registry {
	return m.reg
}
