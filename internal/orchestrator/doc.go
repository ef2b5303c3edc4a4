// Package orchestrator управляет жизненным циклом оркестраций.
//
// Orchestrator отвечает за:
//   - Построение графа workflow по запросу (Graph Builder)
//   - Отправку первого сообщения стартовой роли
//   - Monitor-цикл: блокирующее ожидание completion-событий,
//     ограниченное общим deadline оркестрации
//   - Односторонние переходы статуса INITIATED → RUNNING → {COMPLETED, FAILED}
//   - Stop/Status/ListActive для внешнего HTTP-слоя
//   - Recover: переподключение monitor-циклов к незавершённым
//     оркестрациям из персистентного реестра после рестарта
//
// Таймаут — advisory: monitor перестаёт ждать и помечает оркестрацию
// FAILED, но не прерывает выполняющийся вызов analysis executor'а.
// Позднее completion-событие обнаруживается по уже терминальному
// статусу и отбрасывается.
package orchestrator
