package config

import (
	"fmt"

	"lopan-production/internal/policy"
	"lopan-production/internal/types"

	"github.com/spf13/viper"
)

// Config 定义应用程序的配置结构
// 使用 mapstructure 标签来映射配置文件中的字段
type Config struct {
	ListenAddr             string            `mapstructure:"listen_addr"`              // 协调器 HTTP 服务监听地址
	MachineStatusEndpoint  string            `mapstructure:"machine_status_endpoint"`  // 机台状态采集服务地址
	Machines               []types.MachineID `mapstructure:"machines"`                 // 车间机台清单
	MaxConcurrentRefreshes int               `mapstructure:"max_concurrent_refreshes"` // 就绪状态并发刷新上限
	ReadinessTTLSeconds    int               `mapstructure:"readiness_ttl_seconds"`    // 就绪状态缓存有效期，过期视为未就绪
	RefreshTimeoutMs       int               `mapstructure:"refresh_timeout_ms"`       // 单台机台状态采集超时
	Cutoff                 policy.TimeOfDay  `mapstructure:"cutoff"`                   // 每日截单时刻，之后当日只能新排晚班
	TieBreakRule           string            `mapstructure:"tie_break_rule"`           // 冲突自动消解的排序规则 (expr 语法，env 为 a/b 两个批次)
	JournalPath            string            `mapstructure:"journal_path"`             // 批次/审批组日志文件路径
}

// LoadConfig 从 config.yaml 文件加载配置
// 使用 Viper 库来读取和解析配置文件
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config") // 配置文件名称 (不带扩展名)
	viper.SetConfigType("yaml")   // 配置文件类型
	viper.AddConfigPath(".")      // 查找配置文件的路径 (当前目录)

	// 设置默认值
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("max_concurrent_refreshes", 4)
	viper.SetDefault("readiness_ttl_seconds", 30)
	viper.SetDefault("refresh_timeout_ms", 3000)
	viper.SetDefault("cutoff.hour", 12) // 默认正午截单
	viper.SetDefault("cutoff.minute", 0)
	viper.SetDefault("tie_break_rule", "a.SubmittedAt.Before(b.SubmittedAt)")
	viper.SetDefault("journal_path", "batches.journal")

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 将配置解析到结构体中
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}
