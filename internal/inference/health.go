package inference

import "github.com/Brownie44l1/screen-detect/internal/model"

// HealthCheck checks that the model can be acquired. It never runs inference.
type HealthCheck struct {
	registry *model.Registry
}

func NewHealthCheck(registry *model.Registry) *HealthCheck {
	return &HealthCheck{registry: registry}
}

// Check returns nil when the registry yields a handle.
func (c *HealthCheck) Check() error {
	_, err := c.registry.Acquire()
	return err
}
