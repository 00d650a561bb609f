package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如职位缺失、AI 输出为空，流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                = 0
	ResourceMissing   = 4004
	EmptyResult       = 4102
	ProviderError     = 4201
	AutomationBlocked = 4301
	SystemError       = 5000
)
