package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// Response 定义了机台状态服务返回的响应体
type Response struct {
	MachineID         string `json:"machine_id"`
	IsReady           bool   `json:"is_ready"`
	IsRunning         bool   `json:"is_running"`
	ConfigFingerprint string `json:"config_fingerprint,omitempty"`
	Error             string `json:"error,omitempty"`
}

// main 是机台状态采集服务的入口
// 模拟车间物理设备的状态上报，供本地联调使用
func main() {
	port := os.Getenv("MACHINE_AGENT_ADDR")
	if port == "" {
		port = ":9090"
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "machine-agent")
	slog.SetDefault(logger)

	logger.Info("=== 机台状态采集服务启动 ===", "addr", port)

	http.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		machineID := strings.TrimPrefix(r.URL.Path, "/status/")
		if machineID == "" {
			http.Error(w, "缺少机台 ID", http.StatusBadRequest)
			return
		}

		// 从 HTTP Header 中提取 Trace ID，用于链路追踪
		traceID := r.Header.Get("X-Trace-ID")
		reqLogger := logger.With("machine_id", machineID)
		if traceID != "" {
			reqLogger = reqLogger.With("trace_id", traceID)
		}

		// 模拟设备状态采集耗时
		time.Sleep(time.Duration(rand.Intn(200)+50) * time.Millisecond)

		resp := Response{MachineID: machineID}
		switch {
		case rand.Float32() < 0.05: // 5% 概率设备通信故障
			resp.Error = "设备通信超时"
			reqLogger.Warn("状态采集失败", "error", resp.Error)
		case rand.Float32() < 0.2: // 20% 概率机台正在运行
			resp.IsReady = false
			resp.IsRunning = true
			reqLogger.Info("机台运行中")
		default:
			resp.IsReady = true
			reqLogger.Info("机台空闲就绪")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	if err := http.ListenAndServe(port, nil); err != nil {
		logger.Error("服务启动失败", "error", err)
	}
}
