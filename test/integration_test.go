package test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
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

// setupTestApp 启动一个完整的应用实例以进行测试
// 机台状态采集服务用 httptest 伪造，全部机台就绪且空闲
func setupTestApp(t *testing.T) (*coordinator.Coordinator, *web.BoardTracker, *httptest.Server) {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(filename), "..")
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("无法切换目录: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hub := web.NewHub()
	go hub.Run()
	boardTracker := web.NewBoardTracker(hub)
	eventBus := event.NewBus()

	tmpDir := t.TempDir()
	journal, err := persistence.NewJournal(filepath.Join(tmpDir, "test.journal"))
	if err != nil {
		t.Fatalf("无法初始化持久化日志: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	handlers.RegisterEventHandlers(eventBus, boardTracker, logger)

	// 伪造机台状态采集服务：全部机台就绪且空闲
	agentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/status/"):]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"machine_id": id,
			"is_ready":   true,
			"is_running": false,
		})
	}))
	t.Cleanup(agentServer.Close)

	clock := policy.SystemClock{}
	pol := policy.New(cfg.Cutoff)
	resolver, err := conflict.NewResolver(cfg.TieBreakRule, clock, logger)
	if err != nil {
		t.Fatalf("初始化冲突消解器失败: %v", err)
	}
	detector := conflict.NewDetector(logger)

	refreshTimeout := time.Duration(cfg.RefreshTimeoutMs) * time.Millisecond
	provider := readiness.NewRemoteProvider(agentServer.URL, refreshTimeout, logger)
	tracker := readiness.NewTracker(provider, clock,
		time.Duration(cfg.ReadinessTTLSeconds)*time.Second, refreshTimeout,
		cfg.MaxConcurrentRefreshes, logger)
	// 审批前要有新鲜读数，否则全部批次都会落入机台未就绪冲突
	tracker.RefreshAll(context.Background(), cfg.Machines)

	coord := coordinator.New(journal, tracker, detector, resolver, pol, clock, eventBus, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", hub.ServeWs)
	mux.HandleFunc("/api/board", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(boardTracker.Snapshot())
	})
	mux.HandleFunc("/api/batches", func(w http.ResponseWriter, r *http.Request) {
		var req coordinator.CreateBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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
	})
	mux.HandleFunc("/api/batches/submit", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BatchIDs []string `json:"batch_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(coord.SubmitForApproval(req.BatchIDs))
	})
	mux.HandleFunc("/api/approvals/bulk", func(w http.ResponseWriter, r *http.Request) {
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
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(result)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return coord, boardTracker, server
}

// createBatchViaAPI 通过 HTTP 创建一个晚班批次并返回其 ID
// 晚班整日可排期，测试不受截单时刻影响
func createBatchViaAPI(t *testing.T, server *httptest.Server, machine string, allowCoexisting bool) string {
	t.Helper()
	shift := types.ShiftEvening
	req := coordinator.CreateBatchRequest{
		MachineID:       types.MachineID(machine),
		Mode:            types.ModeSingleColor,
		TargetDate:      time.Now(),
		Shift:           &shift,
		SubmittedBy:     types.UserRef{ID: "op-1", DisplayName: "操作员一号"},
		AllowCoexisting: allowCoexisting,
		Configs: []types.ProductConfig{
			{ProductID: "P100", ProductName: "外壳", ColorID: "C-RED", Quantity: 800},
		},
	}
	body, _ := json.Marshal(req)
	resp, err := http.Post(server.URL+"/api/batches", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("创建批次失败: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("预期状态码 201, 得到 %d", resp.StatusCode)
	}
	var batch types.ProductionBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		t.Fatalf("解析批次响应失败: %v", err)
	}
	return batch.ID
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("请求 %s 失败: %v", url, err)
	}
	return resp
}

func TestBulkApproval_HappyPath(t *testing.T) {
	coord, boardTracker, server := setupTestApp(t)

	id1 := createBatchViaAPI(t, server, "M1", false)
	id2 := createBatchViaAPI(t, server, "M2", false)

	resp := postJSON(t, server.URL+"/api/batches/submit", map[string]interface{}{
		"batch_ids": []string{id1, id2},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("提交审批预期状态码 200, 得到 %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/approvals/bulk", map[string]interface{}{
		"batch_ids":        []string{id1, id2},
		"approver_user_id": "approver-1",
		"notes":            "晚班集中审批",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("批量审批预期状态码 200, 得到 %d", resp.StatusCode)
	}
	var result types.BatchApprovalResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("解析审批结果失败: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 0 {
		t.Fatalf("预期 2 个批次全部审批成功: %+v", result)
	}
	if result.GroupID == "" {
		t.Fatal("应当创建审批组")
	}

	group, err := coord.GetGroup(result.GroupID)
	if err != nil {
		t.Fatalf("查询审批组失败: %v", err)
	}
	if len(group.BatchIDs) != 2 {
		t.Errorf("审批组应当包含 2 个批次, 得到 %d 个", len(group.BatchIDs))
	}

	// 看板通过异步事件更新，轮询等待两张卡片都到达已审批状态
	approved := false
	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		snapshot := boardTracker.Snapshot()
		c1, ok1 := snapshot.Batches[id1]
		c2, ok2 := snapshot.Batches[id2]
		if ok1 && ok2 && c1.Status == types.StatusApproved && c2.Status == types.StatusApproved {
			approved = true
			break
		}
	}
	if !approved {
		t.Fatalf("看板未在规定时间内反映审批结果: %+v", boardTracker.Snapshot())
	}
}

func TestBulkApproval_HighConflictAborted(t *testing.T) {
	coord, _, server := setupTestApp(t)

	// 两个批次占用同一机台档期：重复占用是高危冲突，批量审批应当整体中止
	id1 := createBatchViaAPI(t, server, "M1", false)
	id2 := createBatchViaAPI(t, server, "M1", true)

	resp := postJSON(t, server.URL+"/api/batches/submit", map[string]interface{}{
		"batch_ids": []string{id1, id2},
	})
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/approvals/bulk", map[string]interface{}{
		"batch_ids":        []string{id1, id2},
		"approver_user_id": "approver-1",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("高危冲突应当返回状态码 409, 得到 %d", resp.StatusCode)
	}

	// 整体中止：两个批次都保持待审批，没有创建审批组
	for _, id := range []string{id1, id2} {
		b, err := coord.GetBatch(id)
		if err != nil {
			t.Fatalf("查询批次失败: %v", err)
		}
		if b.Status != types.StatusPendingApproval {
			t.Errorf("中止后批次应当保持待审批, 得到 %s", b.Status)
		}
	}
	if groups := coord.ListGroups(); len(groups) != 0 {
		t.Errorf("中止不应当创建审批组, 得到 %d 个", len(groups))
	}
}
