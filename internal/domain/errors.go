package domain

import "errors"

var (
	// ErrInvalidWindow возвращается при некорректном окне расписания
	ErrInvalidWindow = errors.New("domain: invalid availability window")

	// ErrInvalidStatus возвращается при неизвестном статусе записи
	ErrInvalidStatus = errors.New("domain: invalid appointment status")
)
