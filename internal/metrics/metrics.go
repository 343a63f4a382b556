package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 定义 Prometheus 监控指标
var (
	// BatchesApprovedTotal 计数器：批量审批中处理完成的批次总数
	// 按结果 (approved/failed) 分类
	BatchesApprovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_batches_approved_total",
		Help: "The total number of batches processed by bulk approval",
	}, []string{"result"})

	// ConflictsDetectedTotal 计数器：检测到的配置冲突总数
	// 按冲突类型分类，用于观察车间排期的健康程度
	ConflictsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_conflicts_detected_total",
		Help: "The total number of configuration conflicts detected",
	}, []string{"type"})

	// ConflictsResolvedTotal 计数器：自动消解成功的冲突总数
	ConflictsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_conflicts_resolved_total",
		Help: "The total number of conflicts resolved automatically",
	}, []string{"type"})

	// StateTransitionsTotal 计数器：批次进入各状态的总次数
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_state_transitions_total",
		Help: "The total number of batch transitions into each workflow state",
	}, []string{"status"})

	// BulkApprovalDuration 直方图：批量审批耗时分布
	BulkApprovalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coordinator_bulk_approval_duration_seconds",
		Help:    "Time spent processing a bulk approval call",
		Buckets: prometheus.DefBuckets,
	})

	// ReadinessRefreshDuration 直方图：机台就绪状态刷新耗时分布
	// 用于分析哪些机台的状态采集是瓶颈
	ReadinessRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "readiness_refresh_duration_seconds",
		Help:    "Time spent refreshing machine readiness state",
		Buckets: prometheus.DefBuckets,
	}, []string{"machine_id"})
)
