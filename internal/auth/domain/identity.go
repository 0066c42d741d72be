// Package domain 定义身份的领域契约：当前用户与身份变更订阅
package domain

// Identity 已认证的用户身份
type Identity struct {
	// 用户 ID
	UID string
	// 展示名
	DisplayName string
}

// Provider 外部持有的身份提供者契约。
// 核心从不假设进程生命周期内身份固定：身份变化必须触发订单订阅的重新圈定。
type Provider interface {
	// Current 返回当前身份；未登录时返回 nil
	Current() *Identity
	// OnChange 注册身份变更监听，返回注销函数；注销幂等
	OnChange(fn func(*Identity)) func()
}
