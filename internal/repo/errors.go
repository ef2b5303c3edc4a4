package repo

import "errors"

// Общие ошибки репозитория.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrTerminal — оркестрация уже в терминальном статусе,
	// обновление отклонено (позднее событие).
	ErrTerminal = errors.New("orchestration already terminal")
)
