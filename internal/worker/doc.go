// Package worker реализует цикл обработки одной роли.
//
// Worker привязан ровно к одной роли и повторяет до остановки:
//   - блокирующий pop из очереди роли (таймаут — точка кооперативной
//     остановки, не ошибка)
//   - построение контекста роли и рендеринг промпта
//   - вызов внешнего analysis executor'а
//   - передача сообщения следующей роли по рёбрам графа workflow
//     или публикация финального результата для терминальной роли
//
// Ошибки обработки не роняют цикл: сообщение перекладывается в очередь
// с RetryCount+1 (с экспоненциальной задержкой), после исчерпания retry
// уходит в dead-letter, и для workflow публикуется ERROR-событие.
//
// Workers масштабируются горизонтально — несколько экземпляров одной
// роли могут потреблять из одной очереди (competing consumers).
package worker
