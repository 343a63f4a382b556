package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lopan-production/internal/config"
	"lopan-production/internal/conflict"
	"lopan-production/internal/coordinator"
	"lopan-production/internal/event"
	"lopan-production/internal/handlers"
	"lopan-production/internal/persistence"
	"lopan-production/internal/policy"
	"lopan-production/internal/readiness"
	"lopan-production/internal/types"
	"lopan-production/internal/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// main 是批次审批协调器服务的主入口
func main() {
	// 1. 初始化核心组件
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("加载配置失败", "error", err)
		os.Exit(1)
	}

	hub := web.NewHub()
	go hub.Run()
	boardTracker := web.NewBoardTracker(hub)

	eventBus := event.NewBus()

	journal, err := persistence.NewJournal(cfg.JournalPath)
	if err != nil {
		logger.Error("无法初始化持久化日志", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	// 2. 注册事件处理器
	handlers.RegisterEventHandlers(eventBus, boardTracker, logger)

	// 3. 初始化策略、检测器、追踪器和协调器
	clock := policy.SystemClock{}
	pol := policy.New(cfg.Cutoff)

	resolver, err := conflict.NewResolver(cfg.TieBreakRule, clock, logger)
	if err != nil {
		logger.Error("初始化冲突消解器失败", "error", err)
		os.Exit(1)
	}
	detector := conflict.NewDetector(logger)

	refreshTimeout := time.Duration(cfg.RefreshTimeoutMs) * time.Millisecond
	provider := readiness.NewRemoteProvider(cfg.MachineStatusEndpoint, refreshTimeout, logger)
	tracker := readiness.NewTracker(provider, clock,
		time.Duration(cfg.ReadinessTTLSeconds)*time.Second, refreshTimeout,
		cfg.MaxConcurrentRefreshes, logger)

	coord := coordinator.New(journal, tracker, detector, resolver, pol, clock, eventBus, logger)

	// 4. 恢复和启动
	batches, groups, err := journal.Recover()
	if err != nil {
		logger.Warn("从持久化日志恢复失败", "error", err)
	}
	coord.Recover(batches, groups)

	logger.Info("=== 生产批次审批协调器启动 ===", "machines", cfg.Machines)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go refreshLoop(ctx, tracker, cfg, logger)

	server := newAPIServer(cfg.ListenAddr, coord, tracker, hub, boardTracker, logger)
	go func() {
		logger.Info("API 和看板服务器启动", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API 服务器启动失败", "error", err)
		}
	}()

	// 5. 优雅停机
	waitForShutdown(logger, cancel, server)
}

// refreshLoop 周期性并发刷新全部机台的就绪状态
// 刷新间隔取缓存有效期的一半，保证审批前总有新鲜读数可用
func refreshLoop(ctx context.Context, tracker *readiness.Tracker, cfg *config.Config, logger *slog.Logger) {
	interval := time.Duration(cfg.ReadinessTTLSeconds) * time.Second / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tracker.RefreshAll(ctx, cfg.Machines)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.RefreshAll(ctx, cfg.Machines)
		}
	}
}

// newAPIServer 构建 API 和看板服务器
func newAPIServer(addr string, coord *coordinator.Coordinator, tracker *readiness.Tracker,
	hub *web.Hub, bt *web.BoardTracker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", hub.ServeWs)

	mux.HandleFunc("/api/board", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bt.Snapshot())
	})

	mux.HandleFunc("/api/batches", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(coord.ListBatches())
		case http.MethodPost:
			var req coordinator.CreateBatchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logger.Warn("解析创建批次请求失败", "error", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			batch, err := coord.CreateBatch(req)
			if err != nil {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(batch)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/batches/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			BatchIDs []string `json:"batch_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		outcomes := coord.SubmitForApproval(req.BatchIDs)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(outcomes)
	})

	mux.HandleFunc("/api/approvals/bulk", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			BatchIDs       []string `json:"batch_ids"`
			ApproverUserID string   `json:"approver_user_id"`
			Notes          string   `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := coord.ProcessBulkApproval(r.Context(), req.BatchIDs, req.ApproverUserID, req.Notes, nil)
		if err != nil {
			// 高危冲突整体中止：零审批，向调用方返回冲突说明
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	mux.HandleFunc("/api/groups/approve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			GroupID        string `json:"group_id"`
			ApproverUserID string `json:"approver_user_id"`
			Notes          string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := coord.ProcessBatchApproval(r.Context(), req.GroupID, req.ApproverUserID, req.Notes, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	mux.HandleFunc("/api/batches/execute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			BatchID       string    `json:"batch_id"`
			ExecutionTime time.Time `json:"execution_time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := coord.MarkExecuting(req.BatchID, req.ExecutionTime); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/batches/transition", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			BatchID string `json:"batch_id"`
			Action  string `json:"action"` // complete / reject / cancel
			Reason  string `json:"reason,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var err error
		switch req.Action {
		case "complete":
			err = coord.CompleteBatch(req.BatchID)
		case "reject":
			err = coord.RejectBatch(req.BatchID, req.Reason)
		case "cancel":
			err = coord.CancelBatch(req.BatchID)
		default:
			http.Error(w, "未知操作: "+req.Action, http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/conflicts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		conflicts := coord.CurrentConflicts()
		if conflicts == nil {
			conflicts = []types.ConfigurationConflict{}
		}
		json.NewEncoder(w).Encode(conflicts)
	})

	mux.HandleFunc("/api/readiness/", func(w http.ResponseWriter, r *http.Request) {
		id := types.MachineID(r.URL.Path[len("/api/readiness/"):])
		state := tracker.Current(id)
		if state == nil {
			http.Error(w, "无可用状态读数", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	})

	return &http.Server{Addr: addr, Handler: mux}
}

// waitForShutdown 等待系统信号以实现优雅停机
func waitForShutdown(logger *slog.Logger, cancel context.CancelFunc, server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("接收到停机信号，正在优雅关闭...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("协调器已安全退出。")
}
