package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（配额耗尽、无有效订阅等，客户端可引导升级）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                   = 0
	QuotaExhausted       = 4001
	NoActiveSubscription = 4002
	PaymentRejected      = 4003
	ResourceMissing      = 4004
	SystemError          = 5000
)
