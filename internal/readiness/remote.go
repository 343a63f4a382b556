package readiness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lopan-production/internal/types"
	"lopan-production/internal/util"
)

// RemoteProvider 通过 HTTP 调用机台状态采集服务
// 它实现了 StatusProvider 接口，协调器一侧无需关心机台状态的来源
type RemoteProvider struct {
	Endpoint string       // 采集服务地址 (e.g., http://localhost:9090)
	Client   *http.Client // HTTP 客户端
	logger   *slog.Logger
}

// NewRemoteProvider 创建一个远程机台状态采集客户端
func NewRemoteProvider(endpoint string, timeout time.Duration, logger *slog.Logger) *RemoteProvider {
	return &RemoteProvider{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "machine-status-client"),
	}
}

// statusResponse 定义了采集服务返回的响应体
type statusResponse struct {
	MachineID         string `json:"machine_id"`
	IsReady           bool   `json:"is_ready"`
	IsRunning         bool   `json:"is_running"`
	ConfigFingerprint string `json:"config_fingerprint,omitempty"`
	Error             string `json:"error,omitempty"`
}

// FetchStatus 通过 HTTP GET 请求拉取指定机台的状态
func (p *RemoteProvider) FetchStatus(ctx context.Context, id types.MachineID) (types.MachineReadinessState, error) {
	logger := p.logger
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		logger = logger.With("trace_id", traceID)
	}

	url := fmt.Sprintf("%s/status/%s", p.Endpoint, id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.MachineReadinessState{}, fmt.Errorf("%w: 创建请求失败: %v", types.ErrMachineUnreachable, err)
	}
	// 将 Trace ID 放入 HTTP Header 中，实现跨服务追踪
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		httpReq.Header.Set("X-Trace-ID", traceID)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		logger.Error("机台状态采集调用失败", "machine_id", id, "error", err)
		return types.MachineReadinessState{}, fmt.Errorf("%w: %v", types.ErrMachineUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("采集服务返回错误状态", "machine_id", id, "status", resp.Status)
		return types.MachineReadinessState{}, fmt.Errorf("%w: 采集服务返回 %s", types.ErrMachineUnreachable, resp.Status)
	}

	var sResp statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		logger.Error("解析采集响应失败", "machine_id", id, "error", err)
		return types.MachineReadinessState{}, fmt.Errorf("%w: 解析响应失败: %v", types.ErrMachineUnreachable, err)
	}
	if sResp.Error != "" {
		return types.MachineReadinessState{}, fmt.Errorf("%w: %s", types.ErrMachineUnreachable, sResp.Error)
	}

	return types.MachineReadinessState{
		MachineID:         id,
		IsReady:           sResp.IsReady,
		IsRunning:         sResp.IsRunning,
		ConfigFingerprint: sResp.ConfigFingerprint,
	}, nil
}
