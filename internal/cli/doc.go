// Package cli реализует инструмент командной строки Consilium.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Consilium API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для запуска, наблюдения и остановки оркестраций
// и инспекции очередей ролей.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Consilium API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	orchestrations, err := client.ListOrchestrations(cli.ListOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: consilium orchestrate list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - orchestrate: start, status, list, stop
//   - queue: list
//
// Каждая группа создаётся через фабричную функцию (NewOrchestrateCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
