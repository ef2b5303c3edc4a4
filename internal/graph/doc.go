// Package graph строит план workflow по тексту запроса.
//
// Builder — чистая детерминированная функция: одинаковый запрос при
// одинаковом каталоге ролей даёт изоморфный граф (тот же набор ролей,
// та же цепочка рёбер). Побочных эффектов нет, что делает построение
// тривиально тестируемым на фиксированных входах.
//
// Эвристика сложности — дешёвые правила по ключевым словам и regex,
// без какой-либо NL-классификации.
package graph
