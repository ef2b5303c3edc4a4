// Package janitor выполняет фоновые служебные задачи API-процесса.
//
// Расписание (robfig/cron, с секундами):
//   - каждые 15 секунд — обновление gauge глубины очередей ролей
//   - каждую минуту   — FailStale: незавершённые оркестрации с истёкшим
//     deadline помечаются FAILED, их состояние в очереди удаляется.
//     Подстраховка на случай гибели monitor-горутины оркестратора.
//   - каждый час      — purge терминальных записей старше retention
//
// Janitor не координируется между инстансами: FailStale и purge
// идемпотентны, двойное срабатывание безвредно.
package janitor
