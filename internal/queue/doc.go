// Package queue реализует общий брокер workflow-сообщений поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — схема exchanges и очередей
//   - queue.go      — операции Queue: push, блокирующий pop,
//     completion-канал workflow, dead-letter, маркер активной роли
//
// Очереди:
//   - role.<id>.queue       — рабочая очередь роли (FIFO, competing consumers)
//   - role.<id>.deadletter  — сообщения, исчерпавшие retry (ручной разбор)
//   - workflow.<id>.completion — события статуса одного workflow
//   - workflow.<id>.active  — маркер активной роли (одно сообщение, TTL)
//
// Очереди workflow создаются по требованию и автоматически истекают
// (x-expires), очереди ролей объявляются при старте процесса.
package queue
