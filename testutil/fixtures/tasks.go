// =============================================================================
// 📦 测试数据工厂 - 任务描述
// =============================================================================
// 提供覆盖四个领域 Agent 路由规则的任务描述，用于端到端测试
// =============================================================================
package fixtures

import "github.com/BaSui01/agentrelay/agent/handoff"

// 路由场景描述
const (
	// HotelSearch 仅命中检索专长
	HotelSearch = "find hotels in Austin"
	// HotelSearchAndNotify 同时命中检索与工作流自动化
	HotelSearchAndNotify = "find hotels and notify the team"
	// ComplexForecast 需要超出统计分析能力的机器学习
	ComplexForecast = "run a complex ML forecast"
	// TripStatistics 纯统计分析
	TripStatistics = "report the taxi trip count by borough"
	// SimpleStatsOnDataScience 落在数据科学 Agent 上的简单统计
	SimpleStatsOnDataScience = "compute simple stats for taxi trips"
	// PingPong 同时命中升级层级与委派层级，analytics 与 data-science 互相转交
	PingPong = "compute simple stats with a complex model"
	// Unmatched 不命中任何专长
	Unmatched = "say hello"
)

// NewTask 创建带固定 ID 的任务，便于断言
func NewTask(id, description string, seeds map[string]handoff.Value) *handoff.Task {
	opts := []handoff.TaskOption{handoff.WithID(id)}
	for k, v := range seeds {
		opts = append(opts, handoff.WithSeed(k, v))
	}
	return handoff.NewTask(description, opts...)
}
