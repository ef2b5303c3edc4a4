package worker

import "errors"

// Ошибки воркера.
var (
	// ErrAnalysisFailed — analysis executor вернул неуспешный результат.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrRetryExhausted — все попытки retry исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrRoleMismatch — сообщение адресовано другой роли.
	ErrRoleMismatch = errors.New("message addressed to another role")

	// ErrMalformedMessage — сообщение без обязательных полей.
	ErrMalformedMessage = errors.New("malformed workflow message")
)
