package payment

// Plan 描述一个订阅套餐：单价（印度卢比）与每日生成配额。
type Plan struct {
	Name          string
	PriceINR      int
	ResumesPerDay int
}

// 套餐目录。金额换算：下单时按 paise（1 INR = 100 paise）提交给网关。
var plans = map[string]Plan{
	"Starter": {Name: "Starter", PriceINR: 99, ResumesPerDay: 10},
	"Elite":   {Name: "Elite", PriceINR: 129, ResumesPerDay: 20},
	"Pro":     {Name: "Pro", PriceINR: 199, ResumesPerDay: 30},
}

// PlanByName 按名称查找套餐。
func PlanByName(name string) (Plan, bool) {
	p, ok := plans[name]
	return p, ok
}

// Plans 返回按价格升序排列的全部套餐。
func Plans() []Plan {
	return []Plan{
		plans["Starter"],
		plans["Elite"],
		plans["Pro"],
	}
}

// AmountPaise 返回套餐价格对应的最小货币单位金额。
func (p Plan) AmountPaise() int64 {
	return int64(p.PriceINR) * 100
}
