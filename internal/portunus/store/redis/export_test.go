package redis

func (c *ConfigCache) SetBeforeCommit(fn func()) { c.beforeCommit = fn }
