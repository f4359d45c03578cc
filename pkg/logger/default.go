package logger

// Default 返回仅输出到控制台的基础 Logger，失败时退化为 Noop。
func Default() Logger {
	l, err := New(DefaultConfig())
	if err != nil {
		return Noop()
	}
	return l
}
