package workflow

import (
	"fmt"
)

// runSafely выполняет fn и превращает панику в ошибку с префиксом scope.
// Вызывается на границе горутин воркфлоу.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
