package appointment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment.repository: appointment not found")

	// ErrSlotConflict возвращается, когда интервал записи пересекается с существующей
	// Источник - exclusion constraint appointments_no_overlap в postgres
	ErrSlotConflict = errors.New("appointment.repository: conflicting appointment interval")

	// ErrDuplicateIdempotencyKey возвращается при повторной вставке с тем же ключом идемпотентности
	ErrDuplicateIdempotencyKey = errors.New("appointment.repository: duplicate idempotency key")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("appointment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса.
	// Ошибка драйвера остается в цепочке (%w): txmanager распознает по ней
	// 40001 и повторяет сериализуемую транзакцию
	ErrExecQuery = errors.New("appointment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("appointment.repository: failed to scan row")
)
