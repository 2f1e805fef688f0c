//go:build !linux

package osthread

func allowedCPUs() []int {
	return nil
}

func pinToCore(cpu int) error {
	return ErrNotSupported
}

func setPriority(p Priority) error {
	return ErrNotSupported
}

func setName(name string) error {
	return ErrNotSupported
}

func currentThreadID() (int, bool) {
	return 0, false
}
