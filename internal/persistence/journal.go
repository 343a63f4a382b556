package persistence

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"lopan-production/internal/types"
)

// logEntry 代表日志文件中的一条记录
// 批次记录写入完整快照，恢复时同 ID 以最后一条为准
type logEntry struct {
	Type  string                 `json:"type"`            // 记录类型: "BATCH" (批次快照) 或 "GROUP" (审批组)
	Batch *types.ProductionBatch `json:"batch,omitempty"` // 批次完整快照
	Group *types.ApprovalGroup   `json:"group,omitempty"` // 审批组记录（不可变，只会写入一次）
}

// Journal 实现了基于追加日志的持久化协作方
// 只保证单实体级别的持久化；跨实体的部分失败记账由协调器自己完成
type Journal struct {
	file *os.File   // 日志文件句柄
	mu   sync.Mutex // 互斥锁，保证文件写入的原子性
}

// NewJournal 创建或打开一个日志文件
func NewJournal(path string) (*Journal, error) {
	// O_APPEND: 追加写入, O_CREATE: 文件不存在则创建, O_RDWR: 读写模式
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// SaveBatch 追加一条批次快照
func (j *Journal) SaveBatch(b *types.ProductionBatch) error {
	return j.append(logEntry{Type: "BATCH", Batch: b})
}

// SaveGroup 追加一条审批组记录
func (j *Journal) SaveGroup(g *types.ApprovalGroup) error {
	return j.append(logEntry{Type: "GROUP", Group: g})
}

func (j *Journal) append(entry logEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	// 写入数据并在末尾添加换行符
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return err
	}
	// 确保数据被刷新到磁盘，防止数据丢失
	return j.file.Sync()
}

// Recover 从日志文件中恢复全部批次的最新快照和全部审批组
// 在系统启动时调用
func (j *Journal) Recover() ([]*types.ProductionBatch, []*types.ApprovalGroup, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// 将文件指针移动到开头以进行读取
	if _, err := j.file.Seek(0, 0); err != nil {
		return nil, nil, err
	}

	latest := make(map[string]*types.ProductionBatch) // 批次 ID -> 最新快照
	order := []string{}                               // 保持首次出现的顺序，恢复结果可预测
	var groups []*types.ApprovalGroup

	scanner := bufio.NewScanner(j.file)
	for scanner.Scan() {
		var entry logEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// 忽略损坏的行
			continue
		}

		switch entry.Type {
		case "BATCH":
			if entry.Batch == nil {
				continue
			}
			if _, seen := latest[entry.Batch.ID]; !seen {
				order = append(order, entry.Batch.ID)
			}
			latest[entry.Batch.ID] = entry.Batch
		case "GROUP":
			if entry.Group != nil {
				groups = append(groups, entry.Group)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	batches := make([]*types.ProductionBatch, 0, len(order))
	for _, id := range order {
		batches = append(batches, latest[id])
	}

	// 恢复文件指针到末尾，以便后续追加写入
	if _, err := j.file.Seek(0, os.SEEK_END); err != nil {
		return nil, nil, err
	}

	return batches, groups, nil
}

// LoadBatches 按 ID 加载批次的最新快照，未找到的 ID 被跳过
func (j *Journal) LoadBatches(ids []string) ([]*types.ProductionBatch, error) {
	batches, _, err := j.Recover()
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.ProductionBatch
	for _, b := range batches {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	return out, nil
}

// Close 关闭日志文件
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
