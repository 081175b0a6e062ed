package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryManager 持有当前生效的 prometheus.Registerer。
// 战斗指标收集器在 init 时通过 GetRegisterer 注册到这里，
// 测试里可以换成独立 Registry 避免与全局收集器重复注册。
type RegistryManager struct {
	mu         sync.RWMutex
	registerer prometheus.Registerer
}

var defaultRegistryManager = &RegistryManager{
	registerer: prometheus.DefaultRegisterer,
}

// SetRegisterer 替换全局 Registerer，传 nil 时回落到 prometheus 默认值。
func SetRegisterer(r prometheus.Registerer) {
	defaultRegistryManager.Set(r)
}

// GetRegisterer 返回当前生效的 Registerer。
func GetRegisterer() prometheus.Registerer {
	return defaultRegistryManager.Get()
}

// WithRegisterer 在 fn 执行期间临时替换 Registerer，结束后恢复原值。
func WithRegisterer(r prometheus.Registerer, fn func()) {
	defaultRegistryManager.With(r, fn)
}

// Set 设置 Registerer。
func (m *RegistryManager) Set(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerer = r
}

// Get 获取 Registerer，未设置时返回 prometheus 默认值。
func (m *RegistryManager) Get() prometheus.Registerer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.registerer == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registerer
}

// With 临时替换 Registerer。
func (m *RegistryManager) With(r prometheus.Registerer, fn func()) {
	m.mu.Lock()
	previous := m.registerer
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	m.registerer = r
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.registerer = previous
		m.mu.Unlock()
	}()

	if fn != nil {
		fn()
	}
}
