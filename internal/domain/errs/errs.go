package errs

import "errors"

// Общая таксономия ошибок модерации. Компоненты оборачивают причину через
// fmt.Errorf("%w: %w", errs.ErrX, err), вызывающие проверяют errors.Is.
var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidTarget = errors.New("invalid target")
	ErrNotFound      = errors.New("not found")
	ErrTransport     = errors.New("transport failure")
	ErrStorage       = errors.New("storage failure")
)
