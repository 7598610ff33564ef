//go:build !govips || !cgo

package blend

func Startup() error {
	return nil
}

func Shutdown() {}

func newEngine(strategy Strategy) (Engine, error) {
	return stdEngine{strategy: strategy}, nil
}
