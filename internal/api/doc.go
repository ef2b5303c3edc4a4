// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go               — Handler с DI (оркестратор, очередь, logger)
//   - routes.go                — регистрация маршрутов
//   - middleware.go            — middleware (logging, recovery)
//   - response.go              — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                   — Data Transfer Objects (request/response)
//   - orchestration_handler.go — обработчики для /orchestrations
//   - queue_handler.go         — обработчики для /queues и /healthz
//
// API предоставляет REST endpoints для запуска, наблюдения и остановки
// оркестраций, а также инспекции очередей ролей.
package api
